package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lexlens/citelink/internal/model"
)

var extractFormat string

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract citations from a single document",
	Long:  "Reads court-document text from a file (or stdin when no file is given), extracts and attributes every citation, and prints the result.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		raw, err := readDocument(args)
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Pipeline.Process(ctx, raw)
		if err != nil {
			return eris.Wrap(err, "extract")
		}

		zap.L().Info("extraction complete",
			zap.String("run_id", result.RunID),
			zap.Int("citations", len(result.Citations)),
			zap.Int("clusters", len(result.Clusters)),
			zap.Int("verified", result.VerifiedCount),
		)

		return writeResult(os.Stdout, result, extractFormat)
	},
}

func readDocument(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", eris.Wrap(err, "read stdin")
		}
		return string(b), nil
	}

	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", eris.Wrapf(err, "read %s", args[0])
	}
	return string(b), nil
}

func writeResult(w io.Writer, result *model.ExtractionResult, format string) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "text":
		formatResultText(w, result)
		return nil
	default:
		return eris.Errorf("unknown output format %q", format)
	}
}

func formatResultText(w io.Writer, result *model.ExtractionResult) {
	fmt.Fprintf(w, "Run %s: %d citations, %d clusters, %d verified\n",
		result.RunID, len(result.Citations), len(result.Clusters), result.VerifiedCount)
	if result.PrimaryCaseName != "" && result.PrimaryCaseName != model.NotAvailable {
		fmt.Fprintf(w, "Document: %s\n", result.PrimaryCaseName)
	}
	for _, c := range result.Citations {
		fmt.Fprintf(w, "  %-40s %s (%s)", c.Span.Text, c.DisplayName(), c.DisplayDate())
		if v := c.Canonical.Verified; v != "" && v != model.VerifiedFalse {
			fmt.Fprintf(w, " [%s]", v)
		}
		if c.ClusterID != "" {
			fmt.Fprintf(w, " {%s}", c.ClusterID)
		}
		fmt.Fprintln(w)
	}
}

func init() {
	extractCmd.Flags().StringVar(&extractFormat, "format", "json", "output format: json or text")
	rootCmd.AddCommand(extractCmd)
}
