package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"

	"learnshell/internal/config"
	"learnshell/internal/domain"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	expected := []string{"ask", "scholar", "serve"}
	found := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		found[c.Name()] = true
	}
	for _, name := range expected {
		if !found[name] {
			t.Errorf("expected subcommand %q not found", name)
		}
	}
}

func TestPrintFormats(t *testing.T) {
	t.Parallel()

	result := ScholarResultList{Query: "entropy", Results: []domain.ScholarResult{{Title: "On Entropy"}}}

	var yamlOut bytes.Buffer
	if err := Print(&yamlOut, FormatYAML, result); err != nil {
		t.Fatalf("yaml print failed: %v", err)
	}
	if !strings.Contains(yamlOut.String(), "title: On Entropy") {
		t.Fatalf("unexpected yaml: %q", yamlOut.String())
	}

	var jsonOut bytes.Buffer
	if err := Print(&jsonOut, FormatJSON, result); err != nil {
		t.Fatalf("json print failed: %v", err)
	}
	var decoded ScholarResultList
	if err := json.Unmarshal(jsonOut.Bytes(), &decoded); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if decoded.Query != "entropy" || len(decoded.Results) != 1 {
		t.Fatalf("unexpected decoded result: %+v", decoded)
	}

	if err := Print(io.Discard, "xml", result); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestAskReturnsAnswerAndPapers(t *testing.T) {
	server := newLearningServer(t)
	env := testEnv(t, server.URL)

	result, err := ask(context.Background(), env, "why is the sky blue", askOptions{Mode: domain.SearchModeGlobal})
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if result.Answer != "Rayleigh scattering" || result.Mode != domain.SearchModeGlobal {
		t.Fatalf("unexpected answer: %+v", result)
	}
	if len(result.Scholar) != 1 || result.Scholar[0].Title != "Scattering of Light" {
		t.Fatalf("unexpected papers: %+v", result.Scholar)
	}
}

func TestAskLocalWithoutScholar(t *testing.T) {
	server := newLearningServer(t)
	env := testEnv(t, server.URL)

	result, err := ask(context.Background(), env, "summarize my notes", askOptions{Mode: domain.SearchModeLocal, NoScholar: true})
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if result.Answer != "local notes summary" || len(result.Scholar) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestAskRejectsUnknownMode(t *testing.T) {
	server := newLearningServer(t)
	env := testEnv(t, server.URL)

	if _, err := ask(context.Background(), env, "hi", askOptions{Mode: "quantum"}); err == nil {
		t.Fatal("expected unknown mode error")
	}
}

func TestMCPAskTool(t *testing.T) {
	server := newLearningServer(t)
	env := testEnv(t, server.URL)
	srv := newMCPServer(env, "")

	result, err := srv.handleAsk(context.Background(), callTool("ask", map[string]any{
		"question": "why is the sky blue",
		"scholar":  false,
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	var decoded AskResult
	if err := yaml.Unmarshal([]byte(resultText(t, result)), &decoded); err != nil {
		t.Fatalf("decode tool output: %v", err)
	}
	if decoded.Answer != "Rayleigh scattering" || len(decoded.Scholar) != 0 {
		t.Fatalf("unexpected tool output: %+v", decoded)
	}
}

func TestMCPToolsRequireArguments(t *testing.T) {
	t.Parallel()

	srv := newMCPServer(cliEnv{format: FormatYAML, logger: slog.New(slog.DiscardHandler)}, "")
	askResult, err := srv.handleAsk(context.Background(), callTool("ask", map[string]any{}))
	if err != nil || !askResult.IsError {
		t.Fatalf("expected ask tool error result, got %+v err=%v", askResult, err)
	}
	scholarResult, err := srv.handleScholar(context.Background(), callTool("scholar_search", map[string]any{}))
	if err != nil || !scholarResult.IsError {
		t.Fatalf("expected scholar tool error result, got %+v err=%v", scholarResult, err)
	}
}

func TestMCPScholarTool(t *testing.T) {
	server := newLearningServer(t)
	env := testEnv(t, server.URL)
	srv := newMCPServer(env, "")

	result, err := srv.handleScholar(context.Background(), callTool("scholar_search", map[string]any{"query": "light"}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError || !strings.Contains(resultText(t, result), "Scattering of Light") {
		t.Fatalf("unexpected tool result: %+v", result)
	}
}

func TestServeRejectsUnknownTransport(t *testing.T) {
	t.Parallel()

	srv := newMCPServer(cliEnv{logger: slog.New(slog.DiscardHandler)}, "")
	if err := srv.serve("carrier-pigeon", 0); err == nil {
		t.Fatal("expected unsupported transport error")
	}
}

func newLearningServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/research":
			_, _ = io.WriteString(w, `{"answer":"Rayleigh scattering"}`)
		case "/api/local_research":
			_, _ = io.WriteString(w, `{"answer":"local notes summary"}`)
		case "/scholar":
			if r.Header.Get("X-API-KEY") != "serper-key" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			_, _ = io.WriteString(w, `{"organic":[{"title":"Scattering of Light","link":"https://papers.example/light"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func testEnv(t *testing.T, baseURL string) cliEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("LEARNSHELL_CONFIG", "")
	t.Setenv("LEARNSHELL_RULES_FILE", "")
	t.Setenv("BACKEND_BASE_URL", baseURL)
	t.Setenv("SERPER_BASE_URL", baseURL)
	t.Setenv("SERPER_API_KEY", "serper-key")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cliEnv{format: FormatYAML, cfg: cfg, logger: slog.New(slog.DiscardHandler)}
}

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	var request mcp.CallToolRequest
	request.Params.Name = name
	request.Params.Arguments = args
	return request
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("tool result has no content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", result.Content[0])
	}
	return text.Text
}
