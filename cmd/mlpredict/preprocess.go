package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mlpredict/internal/output"
)

func newPreprocessCmd() *cobra.Command {
	var cols string
	cmd := &cobra.Command{
		Use:     "preprocess <input> <output>",
		Short:   "Select and reorder columns of a delimited file",
		Example: "  mlpredict preprocess ratings.tsv ratings.csv --cols userId,movieId,rating\n  mlpredict preprocess data.csv subset.csv -c 3,1",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := output.Preprocess(args[0], args[1], cols)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "File processed successfully: %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cols, "cols", "c", "", "Columns to keep, in order: names or 1-based indexes, comma separated")
	return cmd
}
