package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/dealercheck/internal/dealer"
)

const validCNPJ = "11.222.333/0001-81"

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type response struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type toolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

func newTestServer(t *testing.T, responses map[string]dealer.MockResponse) (*Server, *dealer.MockClient) {
	t.Helper()
	client := dealer.NewMockClient(responses)
	checker, err := dealer.NewChecker(client, dealer.Config{}, nil)
	require.NoError(t, err)
	return NewServer(checker, "dealercheck", "test", nil), client
}

// roundTrip hands each message to the server and returns the decoded
// responses. Notifications produce none.
func roundTrip(t *testing.T, srv *Server, messages ...string) []response {
	t.Helper()
	var responses []response
	for _, msg := range messages {
		reply := srv.mcp.HandleMessage(context.Background(), json.RawMessage(msg))
		if reply == nil {
			continue
		}
		data, err := json.Marshal(reply)
		require.NoError(t, err)

		var resp response
		require.NoError(t, json.Unmarshal(data, &resp), string(data))
		responses = append(responses, resp)
	}
	return responses
}

func callTool(name string, args string) string {
	return `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"` + name + `","arguments":` + args + `}}`
}

func decodeToolResult(t *testing.T, resp response) (toolResult, map[string]any) {
	t.Helper()
	require.Nil(t, resp.Error)
	var result toolResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &body))
	return result, body
}

func TestInitializeAndNotifications(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	responses := roundTrip(t, srv,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":"two","method":"ping"}`,
	)
	require.Len(t, responses, 2)

	assert.JSONEq(t, `1`, string(responses[0].ID))
	var initResult struct {
		ProtocolVersion string         `json:"protocolVersion"`
		Capabilities    map[string]any `json:"capabilities"`
		ServerInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"serverInfo"`
	}
	require.NoError(t, json.Unmarshal(responses[0].Result, &initResult))
	assert.Equal(t, "2024-11-05", initResult.ProtocolVersion)
	assert.Equal(t, "test", initResult.ServerInfo.Version)
	assert.Equal(t, "dealercheck", initResult.ServerInfo.Name)
	assert.Contains(t, initResult.Capabilities, "tools")
	assert.Contains(t, initResult.Capabilities, "resources")

	assert.JSONEq(t, `"two"`, string(responses[1].ID))
}

func TestToolsList(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	responses := roundTrip(t, srv, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	require.Len(t, responses, 1)

	var listed struct {
		Tools []struct {
			Name        string         `json:"name"`
			InputSchema map[string]any `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(responses[0].Result, &listed))

	names := make([]string, 0, len(listed.Tools))
	for _, tool := range listed.Tools {
		names = append(names, tool.Name)
		assert.Equal(t, []any{"cnpj"}, tool.InputSchema["required"], tool.Name)
	}
	assert.ElementsMatch(t, []string{ToolValidateCNPJ, ToolStatus, ToolReputation, ToolLegal, ToolComprehensive}, names)

	for _, tool := range listed.Tools {
		props, ok := tool.InputSchema["properties"].(map[string]any)
		require.True(t, ok)
		if tool.Name == ToolComprehensive {
			assert.Contains(t, props, "concern")
		}
		if tool.Name == ToolValidateCNPJ {
			assert.NotContains(t, props, "company_name")
		}
	}
}

func TestValidateTool(t *testing.T) {
	srv, client := newTestServer(t, nil)

	responses := roundTrip(t, srv,
		callTool(ToolValidateCNPJ, `{"cnpj":"`+validCNPJ+`"}`),
		callTool(ToolValidateCNPJ, `{"cnpj":"11.222.333/0001-80"}`),
	)
	require.Len(t, responses, 2)

	result, body := decodeToolResult(t, responses[0])
	assert.False(t, result.IsError)
	assert.Equal(t, true, body["is_valid"])
	assert.Equal(t, validCNPJ, body["cnpj_formatted"])

	result, body = decodeToolResult(t, responses[1])
	assert.False(t, result.IsError)
	assert.Equal(t, false, body["is_valid"])
	assert.Equal(t, "ChecksumError", body["reason"])

	assert.Empty(t, client.Calls())
}

func TestComprehensiveTool(t *testing.T) {
	srv, client := newTestServer(t, map[string]dealer.MockResponse{
		"status":     {Text: `{"situacao_cadastral": "CANCELADA"}`},
		"reputation": {Text: `{"reputation_score": "85"}`},
		"legal":      {Text: `{"risk_level": "BAIXO"}`},
	})

	responses := roundTrip(t, srv,
		callTool(ToolComprehensive, `{"cnpj":"`+validCNPJ+`","company_name":"Auto Teste","concern":"preço baixo"}`))
	require.Len(t, responses, 1)

	result, body := decodeToolResult(t, responses[0])
	assert.False(t, result.IsError)
	assert.EqualValues(t, 40, body["risk_score"])
	assert.Equal(t, "MEDIO", body["risk_level"])
	assert.Len(t, client.Calls(), 3)
}

func TestToolErrors(t *testing.T) {
	srv, client := newTestServer(t, map[string]dealer.MockResponse{
		"legal": {Err: errors.New("upstream down")},
	})

	responses := roundTrip(t, srv,
		callTool(ToolStatus, `{"cnpj":"11.222.333/0001-80"}`),
		callTool(ToolLegal, `{"cnpj":"`+validCNPJ+`"}`),
		callTool(ToolReputation, `{}`),
	)
	require.Len(t, responses, 3)

	result, body := decodeToolResult(t, responses[0])
	assert.True(t, result.IsError)
	detail, ok := body["detail"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "11.222.333/0001-80", detail["cnpj_provided"])

	result, body = decodeToolResult(t, responses[1])
	assert.True(t, result.IsError)
	assert.Contains(t, body["error"], "provider request failed")

	result, _ = decodeToolResult(t, responses[2])
	assert.True(t, result.IsError)

	require.Len(t, client.Calls(), 1)
	assert.Equal(t, "legal", client.Calls()[0].Operation)
}

func TestUnknownToolAndMethod(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	responses := roundTrip(t, srv,
		callTool("search_business_images", `{"cnpj":"`+validCNPJ+`"}`),
		`{"jsonrpc":"2.0","id":2,"method":"dealers/list"}`,
		`not json`,
	)
	require.Len(t, responses, 3)

	require.NotNil(t, responses[0].Error)
	require.NotNil(t, responses[1].Error)
	assert.Equal(t, -32601, responses[1].Error.Code)
	require.NotNil(t, responses[2].Error)
	assert.Equal(t, -32700, responses[2].Error.Code)
}

func TestResources(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	responses := roundTrip(t, srv,
		`{"jsonrpc":"2.0","id":1,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{"uri":"fraud://sources/indicators"}}`,
		`{"jsonrpc":"2.0","id":3,"method":"resources/read","params":{"uri":"fraud://legal/disclaimer"}}`,
		`{"jsonrpc":"2.0","id":4,"method":"resources/read","params":{"uri":"fraud://nope"}}`,
	)
	require.Len(t, responses, 4)

	var listed struct {
		Resources []struct {
			URI      string `json:"uri"`
			MIMEType string `json:"mimeType"`
		} `json:"resources"`
	}
	require.NoError(t, json.Unmarshal(responses[0].Result, &listed))
	assert.Len(t, listed.Resources, 3)
	for _, r := range listed.Resources {
		assert.Equal(t, "text/markdown", r.MIMEType, r.URI)
	}

	for _, resp := range responses[1:3] {
		var read struct {
			Contents []struct {
				MIMEType string `json:"mimeType"`
				Text     string `json:"text"`
			} `json:"contents"`
		}
		require.NoError(t, json.Unmarshal(resp.Result, &read))
		require.Len(t, read.Contents, 1)
		assert.Equal(t, "text/markdown", read.Contents[0].MIMEType)
		assert.NotEmpty(t, read.Contents[0].Text)
	}
	assert.Contains(t, string(responses[1].Result), "CANCELADA")

	require.NotNil(t, responses[3].Error)
}

func TestServeStopsOnCanceledContext(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	pr, pw := io.Pipe()
	defer pw.Close()

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, pr, &bytes.Buffer{}) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServeAnswersOverStdio(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var out bytes.Buffer
	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n")
	require.NoError(t, srv.Serve(context.Background(), in, &out))

	var resp response
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp), out.String())
	assert.JSONEq(t, `1`, string(resp.ID))
	assert.Nil(t, resp.Error)
}
