package mcp

import (
	"context"
	"embed"
	"fmt"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

//go:embed resources/*.md
var resourceFS embed.FS

const markdown = "text/markdown"

type resourceEntry struct {
	resource mcpgo.Resource
	file     string
}

var resources = []resourceEntry{
	{
		resource: mcpgo.NewResource("fraud://sources/indicators", "Indicadores de Fraude",
			mcpgo.WithResourceDescription("Red flags usados na pontuação de risco de lojistas"),
			mcpgo.WithMIMEType(markdown)),
		file: "resources/indicators.md",
	},
	{
		resource: mcpgo.NewResource("fraud://guide/usage", "Guia de Uso",
			mcpgo.WithResourceDescription("Como combinar as ferramentas para verificar um lojista"),
			mcpgo.WithMIMEType(markdown)),
		file: "resources/usage.md",
	},
	{
		resource: mcpgo.NewResource("fraud://legal/disclaimer", "Aviso Legal",
			mcpgo.WithResourceDescription("Limites e responsabilidades no uso das análises"),
			mcpgo.WithMIMEType(markdown)),
		file: "resources/disclaimer.md",
	},
}

// Resources lists the documents this server exposes.
func Resources() []mcpgo.Resource {
	out := make([]mcpgo.Resource, len(resources))
	for i, r := range resources {
		out[i] = r.resource
	}
	return out
}

func readResource(_ context.Context, request mcpgo.ReadResourceRequest) ([]mcpgo.ResourceContents, error) {
	uri := request.Params.URI
	for _, r := range resources {
		if r.resource.URI != uri {
			continue
		}
		data, err := resourceFS.ReadFile(r.file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", uri, err)
		}
		return []mcpgo.ResourceContents{
			mcpgo.TextResourceContents{URI: uri, MIMEType: r.resource.MIMEType, Text: string(data)},
		}, nil
	}
	return nil, fmt.Errorf("resource not found: %s", uri)
}
