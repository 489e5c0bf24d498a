package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/dealercheck/internal/cli"
	"github.com/Veraticus/dealercheck/internal/dealer"
	"github.com/Veraticus/dealercheck/internal/llm"
	"github.com/Veraticus/dealercheck/internal/risk"
)

// checkOutput is the JSON shape of a comprehensive check.
type checkOutput struct {
	*dealer.Report
	Cost llm.UsageSummary `json:"cost_summary"`
}

func checkCmd() *cobra.Command {
	var (
		company  string
		concern  string
		combined bool
		quiet    bool
	)

	cmd := &cobra.Command{
		Use:   "check <cnpj>",
		Short: "Run every check and score the dealer's fraud risk",
		Long: `Validate the CNPJ, then ask the model about registration status, reputation
and legal history in parallel. The answers are scored 0-100 and mapped to a
risk tier (BAIXO, MEDIO, ALTO, CRITICO) with a recommendation.

Checks that fail or return nothing usable lower the report's confidence
instead of aborting it.`,
		Example: `  dealercheck check 11.222.333/0001-81
  dealercheck check 11222333000181 --company "Auto Center ABC" --concern "preço muito abaixo da FIPE"
  dealercheck check 11222333000181 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}

			opts := dealer.Config{Combined: combined}
			var progress *cli.CheckProgress
			if format == outputText && !quiet {
				progress = cli.NewCheckProgress(cmd.ErrOrStderr(), len(risk.AllChecks))
				opts.Progress = progress.Done
			}

			checker, usage, err := createChecker(appCfg, opts)
			if err != nil {
				return err
			}

			report, err := checker.Comprehensive(cmd.Context(), dealer.Request{
				CNPJ:        args[0],
				CompanyName: company,
				Concern:     concern,
			})
			if progress != nil {
				progress.Finish()
			}
			if err != nil {
				return userFacing(err)
			}

			if format == outputJSON {
				return writeJSON(cmd.OutOrStdout(), checkOutput{Report: report, Cost: usage.Summary()})
			}

			fmt.Fprint(cmd.OutOrStdout(), cli.FormatReport(report))
			printUsage(cmd.OutOrStdout(), usage)
			return nil
		},
	}

	cmd.Flags().StringVarP(&company, "company", "c", "", "company name, improves the search")
	cmd.Flags().StringVar(&concern, "concern", "", "why the dealer looks suspicious")
	cmd.Flags().BoolVar(&combined, "combined", false, "ask for every check in a single prompt")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide the progress bar")
	addOutputFlag(cmd)
	return cmd
}
