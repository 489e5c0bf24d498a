// Package llm provides text-generation clients used to research dealers.
// It supports OpenAI, Anthropic and the Claude Code CLI, with retry,
// fallback-model and token-usage tracking layered on top.
package llm
