package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anime-shed/media-inspector-go/internal/scoring"
)

var (
	reference  string
	hypothesis string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compare a transcript or extracted text with a reference",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := scoring.Compare(reference, hypothesis)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "WER:        %.4f\n", s.WER)
		fmt.Fprintf(out, "CER:        %.4f\n", s.CER)
		fmt.Fprintf(out, "Similarity: %.4f\n", s.Similarity)
		fmt.Fprintf(out, "Words:      %d reference, %d hypothesis\n", s.ReferenceWords, s.HypothesisWords)
		return nil
	},
}

func init() {
	scoreCmd.Flags().StringVar(&reference, "reference", "", "expected text")
	scoreCmd.Flags().StringVar(&hypothesis, "hypothesis", "", "text to score")
	_ = scoreCmd.MarkFlagRequired("reference")
}
