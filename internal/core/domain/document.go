package domain

import (
	"fmt"
	"strings"
	"time"
)

type DocumentState string

const (
	StateQueued    DocumentState = "queued"
	StateAnalyzing DocumentState = "analyzing"
	StateCompleted DocumentState = "completed"
	StateFailed    DocumentState = "failed"
)

// CanAnalyze reports whether an analysis may be started from this state.
func (s DocumentState) CanAnalyze() bool {
	switch s {
	case StateQueued, StateCompleted, StateFailed:
		return true
	default:
		return false
	}
}

type DocumentType string

const (
	DocumentTypePassport      DocumentType = "passport"
	DocumentTypeVisa          DocumentType = "visa"
	DocumentTypeDegree        DocumentType = "degree"
	DocumentTypeIDCard        DocumentType = "id_card"
	DocumentTypeBankStatement DocumentType = "bank_statement"
	DocumentTypeTranscript    DocumentType = "transcript"
	DocumentTypeOther         DocumentType = "other"
)

const DefaultDocumentType = DocumentTypePassport

var documentTypeLabels = map[DocumentType]string{
	DocumentTypePassport:      "Passport",
	DocumentTypeVisa:          "Visa",
	DocumentTypeDegree:        "Degree / Certificate",
	DocumentTypeIDCard:        "ID Card",
	DocumentTypeBankStatement: "Bank Statement",
	DocumentTypeTranscript:    "Transcript",
	DocumentTypeOther:         "Other",
}

// DocumentTypes lists the selectable types in display order.
func DocumentTypes() []DocumentType {
	return []DocumentType{
		DocumentTypePassport,
		DocumentTypeVisa,
		DocumentTypeDegree,
		DocumentTypeIDCard,
		DocumentTypeBankStatement,
		DocumentTypeTranscript,
		DocumentTypeOther,
	}
}

func (t DocumentType) Valid() bool {
	_, ok := documentTypeLabels[t]
	return ok
}

func (t DocumentType) Label() string {
	if label, ok := documentTypeLabels[t]; ok {
		return label
	}
	return string(t)
}

// ParseDocumentType accepts the wire value; an empty value yields the default.
func ParseDocumentType(raw string) (DocumentType, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return DefaultDocumentType, nil
	}
	t := DocumentType(value)
	if !t.Valid() {
		return "", WrapError(ErrInvalidInput, "parse document type", fmt.Errorf("unknown document type %q", raw))
	}
	return t, nil
}

// FileRef describes an uploaded binary as declared by the uploader.
type FileRef struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Size      int64  `json:"size"`
}

// SizeLabel renders the size in KB with one decimal, e.g. "12.3 KB".
func (f FileRef) SizeLabel() string {
	return fmt.Sprintf("%.1f KB", float64(f.Size)/1024)
}

// FormatLabel is the upper-cased media subtype, e.g. "JPEG".
func (f FileRef) FormatLabel() string {
	_, sub, ok := strings.Cut(f.MediaType, "/")
	if !ok {
		return strings.ToUpper(f.MediaType)
	}
	return strings.ToUpper(sub)
}

// PreviewHandle references the stored binary owned by one item.
type PreviewHandle struct {
	Key       string `json:"key"`
	MediaType string `json:"media_type"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

type DocumentItem struct {
	ID           string          `json:"id"`
	File         FileRef         `json:"file"`
	Preview      PreviewHandle   `json:"preview"`
	DocumentType DocumentType    `json:"document_type"`
	State        DocumentState   `json:"state"`
	Result       *AnalysisResult `json:"result,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Consistent reports whether state, result and error agree with each other.
func (d DocumentItem) Consistent() bool {
	switch d.State {
	case StateQueued, StateAnalyzing:
		return d.Result == nil && d.ErrorMessage == ""
	case StateCompleted:
		return d.Result != nil && d.ErrorMessage == ""
	case StateFailed:
		return d.Result == nil && d.ErrorMessage != ""
	default:
		return false
	}
}

// Upload is one candidate file offered at intake.
type Upload struct {
	File         FileRef
	DocumentType DocumentType
	Body         []byte
}
