package domain

import (
	"fmt"
	"strings"
	"time"
)

// AcceptedMediaTypes are the declared media types admitted at intake.
var AcceptedMediaTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/webp", "image/tiff"}

// AllowedFormats is the user-facing list printed in validation notices.
var AllowedFormats = []string{"JPEG", "PNG", "WebP", "TIFF"}

// ValidationNotice is the aggregated, transient rejection message of one intake.
type ValidationNotice struct {
	Message   string    `json:"message"`
	Rejected  []string  `json:"rejected"`
	Allowed   []string  `json:"allowed"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewValidationNotice(rejected []string, issuedAt time.Time, ttl time.Duration) ValidationNotice {
	names := append([]string(nil), rejected...)
	return ValidationNotice{
		Message: fmt.Sprintf("Invalid file type. Only %s are allowed. Rejected: %s",
			strings.Join(AllowedFormats, ", "), strings.Join(names, ", ")),
		Rejected:  names,
		Allowed:   append([]string(nil), AllowedFormats...),
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(ttl),
	}
}

// Error lets a notice travel as a ValidationError.
func (n ValidationNotice) Error() string {
	return n.Message
}

func (n ValidationNotice) Unwrap() error {
	return ErrValidation
}

type IntakeResult struct {
	Accepted []DocumentItem    `json:"accepted"`
	Notice   *ValidationNotice `json:"notice,omitempty"`
}

// RegistryStats mirrors the counters shown above the document list.
type RegistryStats struct {
	Total        int  `json:"total"`
	Queued       int  `json:"queued"`
	Analyzing    int  `json:"analyzing"`
	Analyzed     int  `json:"analyzed"`
	Genuine      int  `json:"genuine"`
	Suspicious   int  `json:"suspicious"`
	Fraudulent   int  `json:"fraudulent"`
	Inconclusive int  `json:"inconclusive"`
	Failed       int  `json:"failed"`
	AnyAnalyzing bool `json:"any_analyzing"`
	HasFailures  bool `json:"has_failures"`
}

// BatchReport summarizes one AnalyzeAll run. It never carries a batch-level error.
type BatchReport struct {
	Submitted int      `json:"submitted"`
	Completed []string `json:"completed"`
	Failed    []string `json:"failed"`
	Discarded []string `json:"discarded"`
}

type AnalysisEvent struct {
	DocumentID   string        `json:"document_id"`
	FileName     string        `json:"file_name"`
	DocumentType DocumentType  `json:"document_type"`
	State        DocumentState `json:"state"`
	Verdict      Verdict       `json:"verdict,omitempty"`
	RiskLevel    RiskLevel     `json:"risk_level,omitempty"`
	Confidence   int           `json:"confidence,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	OccurredAt   time.Time     `json:"occurred_at"`
}
