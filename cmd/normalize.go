package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/thesis-scout/internal/normalize"
)

var (
	normalizeProvider string
	normalizeModel    string
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <file>",
	Short: "Recover companies from a saved provider payload",
	Long:  "Runs the output normalizer over a raw provider payload (use - for stdin) and prints the recovered findings with the tier that produced them.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readPayload(args[0])
		if err != nil {
			return err
		}

		res := normalize.Normalize(raw)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(normalizeOutput{
			Tier:      string(res.Tier),
			Discarded: res.Discarded,
			Findings:  res.Findings(normalizeProvider, normalizeModel),
		})
	},
}

type normalizeOutput struct {
	Tier      string `json:"tier"`
	Discarded int    `json:"discarded"`
	Findings  any    `json:"findings"`
}

func readPayload(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", eris.Wrapf(err, "normalize: read %s", path)
	}
	return string(data), nil
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizeProvider, "provider", "", "provider id to attribute findings to")
	normalizeCmd.Flags().StringVar(&normalizeModel, "model", "", "model that produced the payload")
	rootCmd.AddCommand(normalizeCmd)
}
