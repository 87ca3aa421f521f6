package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adalundhe/museswarm/core/llm"
)

func newTestStore(t *testing.T) *llm.CredentialStore {
	t.Helper()
	return &llm.CredentialStore{Path: filepath.Join(t.TempDir(), "museswarm", "credentials.yaml")}
}

func TestIsValidCredential(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"groq", true},
		{"groq_specialist", true},
		{"anthropic", true},
		{"openai", true},
		{"google", true},
		{"invalid", false},
		{"GROQ", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isValidCredential(tt.name)
			if got != tt.want {
				t.Errorf("isValidCredential(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestInvalidCredentialListsNames(t *testing.T) {
	err := invalidCredential("cohere")
	if !strings.Contains(err.Error(), "groq_specialist") {
		t.Errorf("error should list valid names, got %v", err)
	}
}

func TestReadKeyLine(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"gsk-abc\n", "gsk-abc"},
		{"  gsk-abc  \r\n", "gsk-abc"},
		{"gsk-no-newline", "gsk-no-newline"},
		{"", ""},
	}

	for _, tt := range tests {
		got, err := readKeyLine(strings.NewReader(tt.input))
		if err != nil {
			t.Fatalf("readKeyLine(%q) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("readKeyLine(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSaveAndRemoveCredential(t *testing.T) {
	store := newTestStore(t)
	var out bytes.Buffer

	if err := saveCredential(store, &out, "groq", "gsk-test123"); err != nil {
		t.Fatalf("saveCredential() error = %v", err)
	}
	if !strings.Contains(out.String(), "Credentials saved for groq") {
		t.Errorf("unexpected output: %q", out.String())
	}

	creds, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if creds["groq"] != "gsk-test123" {
		t.Errorf("stored key = %q, want gsk-test123", creds["groq"])
	}

	info, err := os.Stat(store.Path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 && os.PathSeparator == '/' {
		t.Errorf("credentials file mode = %o, want 600", perm)
	}

	out.Reset()
	if err := removeCredential(store, &out, "groq"); err != nil {
		t.Fatalf("removeCredential() error = %v", err)
	}
	if !strings.Contains(out.String(), "Credentials removed for groq") {
		t.Errorf("unexpected output: %q", out.String())
	}

	out.Reset()
	if err := removeCredential(store, &out, "groq"); err != nil {
		t.Fatalf("removeCredential() error = %v", err)
	}
	if !strings.Contains(out.String(), "No credentials found for groq") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestSaveCredentialRejectsEmptyKey(t *testing.T) {
	store := newTestStore(t)
	if err := saveCredential(store, &bytes.Buffer{}, "groq", "   "); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestPrintStatus(t *testing.T) {
	store := newTestStore(t)
	for _, name := range llm.KnownCredentials() {
		t.Setenv(llm.GetEnvKeyName(name), "")
	}
	t.Setenv("GROQ_API_KEY", "gsk-env")
	if err := store.Set("anthropic", "sk-ant"); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	printStatus(store, &out)
	got := out.String()

	for _, want := range []string{
		"groq:             configured (GROQ_API_KEY)",
		"anthropic:        configured (credentials file)",
		"google:           not configured",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("status output missing %q:\n%s", want, got)
		}
	}
}
