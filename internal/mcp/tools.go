package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/Veraticus/dealercheck/internal/cnpj"
	"github.com/Veraticus/dealercheck/internal/dealer"
)

// Tool names.
const (
	ToolValidateCNPJ  = "validate_cnpj"
	ToolStatus        = "verify_cnpj_status"
	ToolReputation    = "check_dealer_reputation"
	ToolLegal         = "check_legal_issues"
	ToolComprehensive = "comprehensive_dealer_check"
)

type toolArgs struct {
	CNPJ        string `validate:"required,max=32"`
	CompanyName string `validate:"max=200"`
	Concern     string `validate:"max=2000"`
}

func cnpjTool(name, description string, withCompany, withConcern bool) mcpgo.Tool {
	opts := []mcpgo.ToolOption{
		mcpgo.WithDescription(description),
		mcpgo.WithString("cnpj",
			mcpgo.Required(),
			mcpgo.Description("CNPJ do lojista, com ou sem formatação"),
		),
	}
	if withCompany {
		opts = append(opts, mcpgo.WithString("company_name",
			mcpgo.Description("Nome da empresa (opcional, melhora a busca)"),
		))
	}
	if withConcern {
		opts = append(opts, mcpgo.WithString("concern",
			mcpgo.Description("Motivo da suspeita (opcional)"),
		))
	}
	return mcpgo.NewTool(name, opts...)
}

// Tools lists the tools this server exposes.
func Tools() []mcpgo.Tool {
	return []mcpgo.Tool{
		cnpjTool(ToolValidateCNPJ, "Valida formato e dígitos verificadores de um CNPJ sem consultas externas", false, false),
		cnpjTool(ToolStatus, "Consulta a situação cadastral do CNPJ na Receita Federal", false, false),
		cnpjTool(ToolReputation, "Avalia a reputação do lojista junto a consumidores (Reclame Aqui, avaliações)", true, false),
		cnpjTool(ToolLegal, "Busca processos, investigações e sanções contra o lojista", true, false),
		cnpjTool(ToolComprehensive, "Análise completa de risco de fraude do lojista, com pontuação de 0 a 100", true, true),
	}
}

// handleTool runs a tool. Bad input and check failures are reported as tool
// errors in the result; only internal faults return err.
func (s *Server) handleTool(ctx context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	name := request.Params.Name
	args := toolArgs{
		CNPJ:        strings.TrimSpace(request.GetString("cnpj", "")),
		CompanyName: strings.TrimSpace(request.GetString("company_name", "")),
		Concern:     request.GetString("concern", ""),
	}

	if err := s.validate.Struct(args); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return errorResult(fmt.Sprintf("campo %s inválido (%s)", fieldErrs[0].Field(), fieldErrs[0].Tag()), nil), nil
		}
		return errorResult(err.Error(), nil), nil
	}

	s.logger.Info("MCP tool call", "tool", name)

	var (
		payload any
		err     error
	)
	switch name {
	case ToolValidateCNPJ:
		result := s.checker.ValidateIdentifier(args.CNPJ)
		payload = map[string]any{
			"cnpj_provided":   result.Input,
			"cnpj_formatted":  result.Formatted,
			"is_valid":        result.Valid,
			"reason":          result.Reason,
			"validation_date": time.Now().Format(time.RFC3339),
		}
	case ToolStatus:
		payload, err = s.checker.CheckStatus(ctx, args.CNPJ)
	case ToolReputation:
		payload, err = s.checker.CheckReputation(ctx, args.CNPJ, args.CompanyName)
	case ToolLegal:
		payload, err = s.checker.CheckLegal(ctx, args.CNPJ, args.CompanyName)
	case ToolComprehensive:
		payload, err = s.checker.Comprehensive(ctx, dealer.Request{
			CNPJ:        args.CNPJ,
			CompanyName: args.CompanyName,
			Concern:     args.Concern,
		})
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}

	var validationErr *cnpj.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return errorResult(validationErr.Error(), map[string]any{
			"cnpj_provided": validationErr.Input,
			"reason":        validationErr.Reason,
		}), nil
	case errors.Is(err, dealer.ErrProvider):
		s.logger.Warn("MCP tool failed", "tool", name, "error", err)
		return errorResult(err.Error(), payload), nil
	case err != nil:
		return nil, err
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcpgo.NewToolResultText(string(data)), nil
}

// errorResult reports a tool-level failure with optional detail.
func errorResult(message string, detail any) *mcpgo.CallToolResult {
	body := map[string]any{"error": message}
	if detail != nil {
		body["detail"] = detail
	}
	data, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return mcpgo.NewToolResultError(message)
	}
	return mcpgo.NewToolResultError(string(data))
}
