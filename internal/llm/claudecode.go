package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Veraticus/dealercheck/internal/common"
)

// claudeCodeClient implements the Client interface using Claude Code CLI.
type claudeCodeClient struct {
	model    string
	cliPath  string
	maxTurns int
}

// newClaudeCodeClient creates a new Claude Code CLI client.
func newClaudeCodeClient(cfg Config) (Client, error) {
	cliPath := cfg.ClaudeCodePath
	if cliPath == "" {
		cliPath = "claude"
	}

	if _, err := exec.LookPath(cliPath); err != nil {
		return nil, fmt.Errorf("claude CLI not found at %s: ensure @anthropic-ai/claude-code is installed", cliPath)
	}

	model := cfg.Model
	if model == "" {
		model = "sonnet"
	}

	return &claudeCodeClient{
		model:    model,
		cliPath:  cliPath,
		maxTurns: 1,
	}, nil
}

// claudeCodeResponse represents the JSON response from Claude Code CLI.
type claudeCodeResponse struct {
	Result    string  `json:"result"`
	Type      string  `json:"type"`
	SessionID string  `json:"session_id"`
	IsError   bool    `json:"is_error"`
	TotalCost float64 `json:"total_cost_usd"`
	Usage     struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Generate runs a single-turn prompt through the claude CLI.
func (c *claudeCodeClient) Generate(ctx context.Context, req Request) (Response, error) {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.cliPath, c.args(req, model)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		if stderr.Len() > 0 {
			return Response{}, fmt.Errorf("%w: claude code error: %s", common.ErrProviderUnavailable, strings.TrimSpace(stderr.String()))
		}
		return Response{}, fmt.Errorf("failed to execute claude: %w", err)
	}

	return parseClaudeCodeOutput(stdout.Bytes(), model)
}

func (c *claudeCodeClient) args(req Request, model string) []string {
	prompt := req.Prompt
	if req.System != "" {
		prompt = req.System + "\n\n" + prompt
	}
	if req.JSON {
		prompt += "\n\nRespond with a single valid JSON object and nothing else."
	}
	return []string{
		"-p", prompt,
		"--output-format", "json",
		"--model", model,
		"--max-turns", strconv.Itoa(c.maxTurns),
	}
}

// parseClaudeCodeOutput accepts the CLI's JSON envelope and falls back to
// plain text output.
func parseClaudeCodeOutput(out []byte, model string) (Response, error) {
	var response claudeCodeResponse
	if err := json.Unmarshal(out, &response); err != nil {
		text := strings.TrimSpace(string(out))
		if text == "" {
			return Response{}, fmt.Errorf("claude code: %w", common.ErrEmptyCompletion)
		}
		return Response{Text: text, Model: model}, nil
	}

	if response.IsError {
		return Response{}, &common.RetryableError{
			Err:       fmt.Errorf("claude code error in response: %s", response.Result),
			Retryable: false,
		}
	}
	if strings.TrimSpace(response.Result) == "" {
		return Response{}, fmt.Errorf("claude code: %w", common.ErrEmptyCompletion)
	}

	return Response{
		Text:  response.Result,
		Model: model,
		Usage: Usage{
			InputTokens:  response.Usage.InputTokens,
			OutputTokens: response.Usage.OutputTokens,
		},
	}, nil
}
