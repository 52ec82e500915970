package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiGeneratorGenerateText(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello Ana, thanks for reaching out."}]}}]}`))
	}))
	defer srv.Close()

	gen, err := NewGeminiGenerator(context.Background(), "k", srv.URL+"/", "")
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	if gen.Model() != DefaultGeminiModel {
		t.Fatalf("model = %q, want %q", gen.Model(), DefaultGeminiModel)
	}
	text, err := gen.GenerateText(context.Background(), "be kind", "write a reply")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "Hello Ana, thanks for reaching out." {
		t.Fatalf("unexpected text %q", text)
	}
	if !strings.Contains(gotPath, DefaultGeminiModel+":generateContent") {
		t.Fatalf("unexpected request path %q", gotPath)
	}
}

func TestGeminiGeneratorServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
	}))
	defer srv.Close()

	gen, err := NewGeminiGenerator(context.Background(), "k", srv.URL+"/", "models/gemini-2.5-flash")
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	if gen.Model() != "gemini-2.5-flash" {
		t.Fatalf("model prefix not stripped: %q", gen.Model())
	}
	if _, err := gen.GenerateText(context.Background(), "", "write a reply"); err == nil {
		t.Fatalf("expected error on 403")
	}
}

func TestNewGeneratorRejectsMissingKeyAndUnknownProvider(t *testing.T) {
	if _, err := NewGenerator(context.Background(), ProviderConfig{Provider: "gemini"}); err == nil {
		t.Fatalf("expected missing api key error")
	}
	if _, err := NewGenerator(context.Background(), ProviderConfig{Provider: "ollama", APIKey: "k", Model: "m"}); err == nil {
		t.Fatalf("expected unknown provider error")
	}
}
