package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/dealercheck/internal/dealer"
	"github.com/Veraticus/dealercheck/internal/mcp"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the checks as MCP tools over stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout so assistants can call
validate_cnpj, verify_cnpj_status, check_dealer_reputation, check_legal_issues
and comprehensive_dealer_check. Logs go to stderr.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			checker, _, err := createChecker(appCfg, dealer.Config{})
			if err != nil {
				return err
			}

			server := mcp.NewServer(checker, "dealercheck", version, slog.Default())
			return server.Serve(cmd.Context(), os.Stdin, os.Stdout)
		},
	}
}
