package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	mlruntime "mlpredict/internal/runtime"
)

func newRunCmd(o *options) *cobra.Command {
	var (
		outputPath string
		hasHeader  string
		separator  string
	)
	cmd := &cobra.Command{
		Use:   "run <model-dir> <input-path>",
		Short: "Predict over a data file or image folder",
		Example: "  mlpredict run ./models/taxi-fare ./data/taxi-fare-test.csv\n" +
			"  mlpredict run ./models/sentiment reviews.tsv --has-header true -o ./out",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := mlruntime.Request{ModelDir: args[0], InputPath: args[1], OutputPath: outputPath, Separator: separator}
			if hasHeader != "" {
				b, err := strconv.ParseBool(hasHeader)
				if err != nil {
					return fmt.Errorf("--has-header must be true or false, got %q", hasHeader)
				}
				req.HasHeader = &b
			}
			rt, err := o.newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()
			res, err := rt.Predict(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d predictions written to %s\n", len(res.Table.Rows), res.OutputPath)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&outputPath, "output-path", "o", "", "Output file or directory (default: the input's directory)")
	f.StringVar(&hasHeader, "has-header", "", "Whether the input has a header row: true|false (default: from the manifest)")
	f.StringVar(&separator, "separator", "", "Input delimiter (default: from the extension, then the manifest)")
	return cmd
}
