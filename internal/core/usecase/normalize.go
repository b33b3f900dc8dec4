package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Shoaibzaak/visa-docverify/internal/core/domain"
)

const (
	extractedTextLimit     = 300
	unknownIssue           = "Unknown Issue"
	missingFindingDetail   = "No detail provided"
	unknownDocumentType    = "Unknown"
	unknownValue           = "unknown"
	missingDataEnvelope    = "missing data"
	truncationEllipsis     = "…"
	dimensionSeparator     = "×"
	extractedTextIndicator = "Text successfully extracted from document"
)

var verdictByRisk = map[domain.RiskLevel]domain.Verdict{
	domain.RiskLow:      domain.VerdictGenuine,
	domain.RiskMedium:   domain.VerdictSuspicious,
	domain.RiskHigh:     domain.VerdictFraudulent,
	domain.RiskCritical: domain.VerdictFraudulent,
}

// VerdictFor maps a reported risk level to a verdict; unknown levels are inconclusive.
func VerdictFor(level domain.RiskLevel) domain.Verdict {
	if v, ok := verdictByRisk[level]; ok {
		return v
	}
	return domain.VerdictInconclusive
}

// NormalizeAnalysis maps an arbitrary backend payload onto the canonical result.
// It is pure: the same envelope always yields a structurally identical result.
func NormalizeAnalysis(envelope *domain.AnalysisEnvelope) (*domain.AnalysisResult, error) {
	if envelope == nil || envelope.Data == nil {
		return nil, &domain.MalformedResponseError{Reason: missingDataEnvelope}
	}
	data := envelope.Data

	riskScore := 0.0
	if data.OverallRiskScore != nil {
		riskScore = *data.OverallRiskScore
	}
	riskLevel := domain.RiskLevel(data.RiskLevel)
	if riskLevel == "" {
		riskLevel = domain.RiskLow
	}

	recommendation := strings.Join(data.Recommendations, " ")
	summary := recommendation
	if summary == "" {
		summary = fmt.Sprintf("Document analysis complete. Risk score: %s/100. Risk level: %s.",
			formatNumber(riskScore), riskLevel)
	}

	documentType := data.DocumentType
	if documentType == "" {
		documentType = unknownDocumentType
	}

	return &domain.AnalysisResult{
		Verdict:            VerdictFor(riskLevel),
		Confidence:         confidenceFromRisk(riskScore),
		RiskLevel:          riskLevel,
		DocumentType:       documentType,
		Summary:            summary,
		RedFlags:           redFlags(data.Findings),
		PositiveIndicators: positiveIndicators(data.AIAnalysis),
		Recommendation:     recommendation,
		Details:            details(data),
	}, nil
}

func confidenceFromRisk(riskScore float64) int {
	confidence := math.Round(100 - riskScore)
	switch {
	case math.IsNaN(confidence), confidence < 0:
		return 0
	case confidence > 100:
		return 100
	default:
		return int(confidence)
	}
}

func redFlags(findings []domain.Finding) []domain.RedFlag {
	flags := make([]domain.RedFlag, 0, len(findings))
	for _, f := range findings {
		issue := strings.ReplaceAll(f.Type, "_", " ")
		if issue == "" {
			issue = unknownIssue
		}
		detail := f.Detail
		if detail == "" {
			detail = missingFindingDetail
		}
		severity := domain.Severity(strings.ToUpper(f.Severity))
		if severity == "" {
			severity = domain.SeverityLow
		}
		flags = append(flags, domain.RedFlag{Issue: issue, Detail: detail, Severity: severity})
	}
	return flags
}

func positiveIndicators(ai *domain.AIAnalysis) []string {
	indicators := []string{}
	if ai == nil {
		return indicators
	}
	if len(ai.DocumentClassification) > 0 {
		top := ai.DocumentClassification[0]
		indicators = append(indicators, fmt.Sprintf("Document classified as %q (%s confidence)",
			top.Label, displayValue(top.Confidence)))
	}
	if ai.ImageMetadata != nil {
		indicators = append(indicators, "Image dimensions: "+dimensions(ai.ImageMetadata))
	}
	if present(ai.ExtractedText) {
		indicators = append(indicators, extractedTextIndicator)
	}
	return indicators
}

func details(data *domain.AnalysisData) map[domain.DetailKey]string {
	out := map[domain.DetailKey]string{}
	if ai := data.AIAnalysis; ai != nil {
		if present(ai.FraudAnalysis) {
			out[domain.DetailFraudAnalysis] = displayValue(ai.FraudAnalysis)
		}
		if present(ai.ExtractedText) {
			out[domain.DetailExtractedText] = truncateText(displayValue(ai.ExtractedText), extractedTextLimit)
		}
		if ai.ImageMetadata != nil {
			out[domain.DetailImageMetadata] = dimensions(ai.ImageMetadata) + " pixels"
		}
	}
	if data.FileName != "" {
		out[domain.DetailFileName] = data.FileName
	}
	if data.FileSize != nil && *data.FileSize != 0 {
		out[domain.DetailFileSize] = fmt.Sprintf("%.1f KB", *data.FileSize/1024)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func dimensions(meta *domain.ImageMetadata) string {
	return displayValue(meta.Width) + dimensionSeparator + displayValue(meta.Height)
}

// present follows JSON truthiness: null, false, 0 and "" count as absent.
func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "false", "0", `""`:
		return false
	default:
		return true
	}
}

// displayValue renders strings unquoted and any other JSON value compactly.
func displayValue(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return unknownValue
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err == nil {
		return compact.String()
	}
	return string(trimmed)
}

func truncateText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + truncationEllipsis
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
