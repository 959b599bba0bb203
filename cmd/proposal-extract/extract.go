package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/joseph-ayodele/proposal-extractor/internal/entity"
)

var extractCmd = &cobra.Command{
	Use:   "extract <source>",
	Short: "Extract one proposal and print the result",
	Long: `Extract runs the full pipeline on a single document and writes the
result to stdout. The source may be a local path, an http(s) URL or
s3://bucket/key.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if format != "json" && format != "yaml" {
			return fmt.Errorf("--format must be json or yaml, got %q", format)
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		rep, err := a.processor.ProcessSource(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if path, _ := cmd.Flags().GetString("out"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			out = f
		}
		return writeResult(out, format, rep.Outcome.Result)
	},
}

func writeResult(w io.Writer, format string, res *entity.ExtractionResult) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func init() {
	extractCmd.Flags().String("format", "json", "output format: json | yaml")
	extractCmd.Flags().StringP("out", "o", "", "write the result to a file instead of stdout")

	rootCmd.AddCommand(extractCmd)
}
