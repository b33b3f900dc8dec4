package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Shoaibzaak/visa-docverify/internal/core/domain"
)

const (
	DocumentsSheet = "Documents"
	RedFlagsSheet  = "Red Flags"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var documentHeaders = []string{
	"File", "Document Type", "Format", "Size", "Status",
	"Verdict", "Confidence", "Risk Level", "Detected Type", "Summary", "Recommendation", "Error",
}

var redFlagHeaders = []string{"File", "Issue", "Detail", "Severity"}

// Write renders one row per item plus one row per red flag on a second sheet.
func Write(w io.Writer, items []domain.DocumentItem) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DocumentsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(RedFlagsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	if err := writeRow(f, DocumentsSheet, 1, toAny(documentHeaders)); err != nil {
		return err
	}
	if err := writeRow(f, RedFlagsSheet, 1, toAny(redFlagHeaders)); err != nil {
		return err
	}

	flagRow := 2
	for i, item := range items {
		if err := writeRow(f, DocumentsSheet, i+2, documentRow(item)); err != nil {
			return err
		}
		if item.Result == nil {
			continue
		}
		for _, flag := range item.Result.RedFlags {
			row := []any{item.File.Name, flag.Issue, flag.Detail, string(flag.Severity)}
			if err := writeRow(f, RedFlagsSheet, flagRow, row); err != nil {
				return err
			}
			flagRow++
		}
	}

	if err := f.SetPanes(DocumentsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func documentRow(item domain.DocumentItem) []any {
	row := []any{
		item.File.Name,
		item.DocumentType.Label(),
		item.File.FormatLabel(),
		item.File.SizeLabel(),
		string(item.State),
		"", "", "", "", "", "",
		item.ErrorMessage,
	}
	if r := item.Result; r != nil {
		row[5] = string(r.Verdict)
		row[6] = r.Confidence
		row[7] = string(r.RiskLevel)
		row[8] = r.DocumentType
		row[9] = r.Summary
		row[10] = r.Recommendation
	}
	return row
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("resolve cell: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", strings.ToLower(sheet), row, err)
	}
	return nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
