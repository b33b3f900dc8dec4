package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	colorRed    = color.New(color.FgRed, color.Bold)
	colorGreen  = color.New(color.FgGreen, color.Bold)
	colorYellow = color.New(color.FgYellow)
	colorCyan   = color.New(color.FgCyan)
	colorFaint  = color.New(color.Faint)
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		colorRed.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docverify",
		Short: "Check visa application documents for signs of fraud",
		Long: `docverify sends document images to the fraud detection service and prints
one verdict per document.

Examples:
  docverify analyze --type passport scans/*.jpg
  docverify analyze --concurrency 4 --xlsx report.xlsx scans/*
  docverify watch`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAnalyzeCmd(), newWatchCmd(), newTypesCmd())
	return root
}
