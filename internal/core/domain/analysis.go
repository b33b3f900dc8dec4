package domain

import "encoding/json"

type Verdict string

const (
	VerdictGenuine      Verdict = "GENUINE"
	VerdictSuspicious   Verdict = "SUSPICIOUS"
	VerdictFraudulent   Verdict = "FRAUDULENT"
	VerdictInconclusive Verdict = "INCONCLUSIVE"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

type DetailKey string

const (
	DetailFraudAnalysis DetailKey = "fraudAnalysis"
	DetailExtractedText DetailKey = "extractedText"
	DetailImageMetadata DetailKey = "imageMetadata"
	DetailFileName      DetailKey = "fileName"
	DetailFileSize      DetailKey = "fileSize"
)

type RedFlag struct {
	Issue    string   `json:"issue"`
	Detail   string   `json:"detail"`
	Severity Severity `json:"severity"`
}

// AnalysisResult is the backend-independent verdict attached to a completed item.
// It is never mutated after the normalizer returns it.
type AnalysisResult struct {
	Verdict            Verdict              `json:"verdict"`
	Confidence         int                  `json:"confidence"`
	RiskLevel          RiskLevel            `json:"risk_level"`
	DocumentType       string               `json:"document_type"`
	Summary            string               `json:"summary"`
	RedFlags           []RedFlag            `json:"red_flags"`
	PositiveIndicators []string             `json:"positive_indicators"`
	Recommendation     string               `json:"recommendation"`
	Details            map[DetailKey]string `json:"details"`
}

// AnalysisRequest is what the coordinator hands to the remote analyzer.
type AnalysisRequest struct {
	DocumentID   string
	File         FileRef
	DocumentType DocumentType
	Body         []byte
}

// AnalysisEnvelope is the raw success body of the fraud analysis service.
type AnalysisEnvelope struct {
	Success *bool         `json:"success,omitempty"`
	Message string        `json:"message,omitempty"`
	Data    *AnalysisData `json:"data"`
}

type AnalysisData struct {
	OverallRiskScore *float64    `json:"overallRiskScore"`
	RiskLevel        string      `json:"riskLevel"`
	Findings         []Finding   `json:"findings"`
	AIAnalysis       *AIAnalysis `json:"aiAnalysis"`
	Recommendations  []string    `json:"recommendations"`
	DocumentType     string      `json:"documentType"`
	FileName         string      `json:"fileName"`
	FileSize         *float64    `json:"fileSize"`
}

type Finding struct {
	Type     string `json:"type"`
	Detail   string `json:"detail"`
	Severity string `json:"severity"`
}

type AIAnalysis struct {
	DocumentClassification []ClassificationLabel `json:"documentClassification"`
	ImageMetadata          *ImageMetadata        `json:"imageMetadata"`
	ExtractedText          json.RawMessage       `json:"extractedText"`
	FraudAnalysis          json.RawMessage       `json:"fraudAnalysis"`
}

type ClassificationLabel struct {
	Label      string          `json:"label"`
	Confidence json.RawMessage `json:"confidence"`
}

type ImageMetadata struct {
	Width  json.RawMessage `json:"width"`
	Height json.RawMessage `json:"height"`
}
