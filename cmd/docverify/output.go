package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/Shoaibzaak/visa-docverify/internal/core/domain"
)

func verdictColor(v domain.Verdict) *color.Color {
	switch v {
	case domain.VerdictGenuine:
		return colorGreen
	case domain.VerdictSuspicious:
		return colorYellow
	case domain.VerdictFraudulent:
		return colorRed
	default:
		return colorFaint
	}
}

func printItem(w io.Writer, item domain.DocumentItem) {
	header := fmt.Sprintf("%s (%s · %s · %s)", item.File.Name, item.DocumentType.Label(), item.File.SizeLabel(), item.File.FormatLabel())

	switch item.State {
	case domain.StateFailed:
		colorRed.Fprintf(w, "✗ %s\n", header)
		fmt.Fprintf(w, "    %s\n", item.ErrorMessage)
		return
	case domain.StateCompleted:
	default:
		colorFaint.Fprintf(w, "… %s: %s\n", header, item.State)
		return
	}

	r := item.Result
	verdictColor(r.Verdict).Fprintf(w, "● %s %s\n", r.Verdict, header)
	fmt.Fprintf(w, "    confidence %d%% · risk %s · detected %s\n", r.Confidence, r.RiskLevel, r.DocumentType)
	if r.Summary != "" {
		fmt.Fprintf(w, "    %s\n", r.Summary)
	}
	for _, flag := range r.RedFlags {
		colorRed.Fprintf(w, "    ! [%s] %s: %s\n", flag.Severity, flag.Issue, flag.Detail)
	}
	for _, indicator := range r.PositiveIndicators {
		colorGreen.Fprintf(w, "    + %s\n", indicator)
	}
}

func printStats(w io.Writer, stats domain.RegistryStats) {
	parts := []string{
		fmt.Sprintf("%d analyzed", stats.Analyzed),
		fmt.Sprintf("%d genuine", stats.Genuine),
		fmt.Sprintf("%d suspicious", stats.Suspicious),
		fmt.Sprintf("%d fraudulent", stats.Fraudulent),
	}
	if stats.Inconclusive > 0 {
		parts = append(parts, fmt.Sprintf("%d inconclusive", stats.Inconclusive))
	}
	if stats.HasFailures {
		parts = append(parts, fmt.Sprintf("%d failed", stats.Failed))
	}
	colorCyan.Fprintln(w, strings.Join(parts, " · "))
}

func printEvent(w io.Writer, event domain.AnalysisEvent) {
	stamp := event.OccurredAt.Local().Format("15:04:05")
	if event.State == domain.StateFailed {
		colorRed.Fprintf(w, "%s ✗ %s (%s): %s\n", stamp, event.FileName, event.DocumentType.Label(), event.ErrorMessage)
		return
	}
	verdictColor(event.Verdict).Fprintf(w, "%s ● %s %s (%s) confidence %d%% risk %s\n",
		stamp, event.Verdict, event.FileName, event.DocumentType.Label(), event.Confidence, event.RiskLevel)
}
