package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Veraticus/dealercheck/internal/cli"
	"github.com/Veraticus/dealercheck/internal/cnpj"
	"github.com/Veraticus/dealercheck/internal/common"
	"github.com/Veraticus/dealercheck/internal/dealer"
	"github.com/Veraticus/dealercheck/internal/llm"
	"github.com/Veraticus/dealercheck/internal/risk"
)

// errReported marks errors already shown to the user.
var errReported = errors.New("already reported")

const (
	outputText = "text"
	outputJSON = "json"
)

func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", outputText, "output format (text, json)")
}

func outputFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("output")
	switch format {
	case outputText, outputJSON:
		return format, nil
	default:
		return "", common.NewUserError(fmt.Sprintf("unknown output format %q", format), nil)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// userFacing turns identifier errors into messages for the terminal.
func userFacing(err error) error {
	var validationErr *cnpj.ValidationError
	if errors.As(err, &validationErr) {
		return common.NewUserError("invalid CNPJ", err)
	}
	return err
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <cnpj>",
		Short: "Validate a CNPJ offline",
		Long: `Check the length and both check digits of a CNPJ without contacting any
service. Exits non-zero when the identifier is invalid.`,
		Args: cobra.ExactArgs(1),
		// No model configuration is needed to validate.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}

			result := cnpj.Validate(args[0])
			if format == outputJSON {
				if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatValidation(result))
			}

			if !result.Valid {
				return fmt.Errorf("%w: %w", errReported, result.Err())
			}
			return nil
		},
	}
	addOutputFlag(cmd)
	return cmd
}

func statusCmd() *cobra.Command {
	return singleCheckCmd(risk.CheckStatus, "status <cnpj>",
		"Check the official registration status of a dealer",
		func(c *dealer.Checker, cmd *cobra.Command, id, _ string) (dealer.CheckResult, error) {
			return c.CheckStatus(cmd.Context(), id)
		})
}

func reputationCmd() *cobra.Command {
	return singleCheckCmd(risk.CheckReputation, "reputation <cnpj>",
		"Check consumer reputation and complaints",
		func(c *dealer.Checker, cmd *cobra.Command, id, company string) (dealer.CheckResult, error) {
			return c.CheckReputation(cmd.Context(), id, company)
		})
}

func legalCmd() *cobra.Command {
	return singleCheckCmd(risk.CheckLegal, "legal <cnpj>",
		"Search lawsuits, investigations and sanctions",
		func(c *dealer.Checker, cmd *cobra.Command, id, company string) (dealer.CheckResult, error) {
			return c.CheckLegal(cmd.Context(), id, company)
		})
}

type checkFunc func(c *dealer.Checker, cmd *cobra.Command, id, company string) (dealer.CheckResult, error)

func singleCheckCmd(check risk.Check, use, short string, run checkFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			company, _ := cmd.Flags().GetString("company")

			checker, usage, err := createChecker(appCfg, dealer.Config{})
			if err != nil {
				return err
			}

			result, err := run(checker, cmd, args[0], company)
			if err != nil && !errors.Is(err, dealer.ErrProvider) {
				return userFacing(err)
			}

			if format == outputJSON {
				if encErr := writeJSON(cmd.OutOrStdout(), result); encErr != nil {
					return encErr
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatCheckResult(result))
				printUsage(cmd.OutOrStdout(), usage)
			}
			if err != nil {
				return fmt.Errorf("%s check failed: %w", check, err)
			}
			return nil
		},
	}
	if check != risk.CheckStatus {
		cmd.Flags().StringP("company", "c", "", "company name, improves the search")
	}
	addOutputFlag(cmd)
	return cmd
}

func printUsage(w io.Writer, usage *llm.UsageTracker) {
	if usage == nil {
		return
	}
	if summary := cli.FormatUsage(usage.Summary()); summary != "" {
		fmt.Fprint(w, summary)
	}
}
