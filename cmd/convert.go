package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bqplab/memrelax/internal/bqp"
)

var convertInputFile string

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Swap a bqpjson document between spin and boolean domains",
	Long: `Convert reads a bqpjson document, rewrites it into the opposite variable
domain with the objective preserved through scale and offset, and writes
the converted document to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		problem, err := loadProblem(convertInputFile)
		if err != nil {
			return err
		}

		converted, err := bqp.SwapDomain(problem)
		if err != nil {
			return fmt.Errorf("failed to convert problem: %w", err)
		}
		if err := converted.Encode(os.Stdout); err != nil {
			return fmt.Errorf("failed to write converted problem: %w", err)
		}
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVarP(&convertInputFile, "input-file", "f", "", "Problem file (default stdin)")
	rootCmd.AddCommand(convertCmd)
}
