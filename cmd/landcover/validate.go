package main

import (
	"fmt"

	"github.com/Kanthalon/tassled-cap/internal/reference"
	"github.com/Kanthalon/tassled-cap/internal/report"
	"github.com/Kanthalon/tassled-cap/pkg/accuracy"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "validate <computed.txt> <reference.txt>",
		Short: "Compare two ENVI ASCII exports series by series",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			computed, err := reference.ReadENVI(args[0])
			if err != nil {
				return err
			}
			ref, err := reference.ReadENVI(args[1])
			if err != nil {
				return err
			}
			if len(computed) != len(ref) {
				return fmt.Errorf("%s has %d series but %s has %d", args[0], len(computed), args[1], len(ref))
			}

			comparisons := make([]accuracy.Comparison, 0, len(computed))
			for i := range computed {
				c, err := accuracy.Compare(fmt.Sprintf("series %d", i+1), computed[i], ref[i])
				if err != nil {
					return err
				}
				comparisons = append(comparisons, c)
			}

			if label == "" {
				label = args[0]
			}
			return report.WriteComparisons(cmd.OutOrStdout(), label, comparisons)
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "Label printed in the report header (default: computed file name)")
	return cmd
}
