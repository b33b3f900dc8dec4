package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Shoaibzaak/visa-docverify/internal/core/domain"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

type batchOutput struct {
	Documents []documentOutput     `json:"documents" yaml:"documents"`
	Stats     domain.RegistryStats `json:"stats" yaml:"stats"`
}

type documentOutput struct {
	File         string           `json:"file" yaml:"file"`
	DocumentType string           `json:"document_type" yaml:"document_type"`
	Size         string           `json:"size" yaml:"size"`
	Format       string           `json:"format" yaml:"format"`
	State        string           `json:"state" yaml:"state"`
	Verdict      string           `json:"verdict,omitempty" yaml:"verdict,omitempty"`
	Confidence   *int             `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	RiskLevel    string           `json:"risk_level,omitempty" yaml:"risk_level,omitempty"`
	Summary      string           `json:"summary,omitempty" yaml:"summary,omitempty"`
	RedFlags     []domain.RedFlag `json:"red_flags,omitempty" yaml:"red_flags,omitempty"`
	Error        string           `json:"error,omitempty" yaml:"error,omitempty"`
}

func newBatchOutput(items []domain.DocumentItem, stats domain.RegistryStats) batchOutput {
	out := batchOutput{Documents: make([]documentOutput, 0, len(items)), Stats: stats}
	for _, item := range items {
		doc := documentOutput{
			File:         item.File.Name,
			DocumentType: string(item.DocumentType),
			Size:         item.File.SizeLabel(),
			Format:       item.File.FormatLabel(),
			State:        string(item.State),
			Error:        item.ErrorMessage,
		}
		if r := item.Result; r != nil {
			confidence := r.Confidence
			doc.Verdict = string(r.Verdict)
			doc.Confidence = &confidence
			doc.RiskLevel = string(r.RiskLevel)
			doc.Summary = r.Summary
			doc.RedFlags = r.RedFlags
		}
		out.Documents = append(out.Documents, doc)
	}
	return out
}

func writeStructured(w io.Writer, format string, out batchOutput) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
