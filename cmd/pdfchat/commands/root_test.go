package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/54b3r/pdfchat-go/internal/config"
	"github.com/54b3r/pdfchat-go/internal/ingestion"
	"github.com/54b3r/pdfchat-go/internal/ledger"
	"github.com/54b3r/pdfchat-go/internal/version"
)

// isolateEnv points every config source at an empty temp directory.
func isolateEnv(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("HOME", root)
	t.Setenv("PROJECT_ROOT", root)
	t.Setenv("PDFCHAT_CONFIG", "")
	t.Setenv("PDF_PATH", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("EMBEDDING_PROVIDER", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("VECTOR_STORE", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("PDFCHAT_LEDGER_DB", "disabled")
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestIngest_MissingPDFFailsBeforeClients(t *testing.T) {
	root := isolateEnv(t)

	// No OPENAI_API_KEY is set, so building the embedder would fail with a
	// MissingCredentialError if it ran first.
	_, err := execute(t, "ingest", "--pdf", filepath.Join(root, "absent.pdf"))
	if !errors.Is(err, ingestion.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	var mce *config.MissingCredentialError
	if errors.As(err, &mce) {
		t.Errorf("credential check ran before the file check: %v", err)
	}
}

func TestIngest_RelativePDFResolvedAgainstProjectRoot(t *testing.T) {
	root := isolateEnv(t)
	t.Setenv("PDF_PATH", "docs/manual.pdf")

	_, err := execute(t, "ingest")
	if !errors.Is(err, ingestion.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	if want := filepath.Join(root, "docs", "manual.pdf"); !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not name %q", err, want)
	}
}

func TestRoot_InvalidSettingsFailCommand(t *testing.T) {
	isolateEnv(t)
	t.Setenv("VECTOR_STORE", "chroma")

	if _, err := execute(t, "ingest"); err == nil || !strings.Contains(err.Error(), "VECTOR_STORE") {
		t.Fatalf("expected VECTOR_STORE error, got %v", err)
	}
}

func TestRuns_ListsRecordedIngestions(t *testing.T) {
	root := isolateEnv(t)
	dbPath := filepath.Join(root, "ledger.db")
	t.Setenv("PDFCHAT_LEDGER_DB", dbPath)

	l, err := ledger.Open(dbPath)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	err = l.Record(context.Background(), ledger.Run{
		Collection:        "manuals",
		Source:            "/srv/manual.pdf",
		Checksum:          strings.Repeat("ab", 32),
		Chunks:            42,
		EmbeddingProvider: "openai",
		EmbeddingModel:    "text-embedding-3-small",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "runs")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	for _, want := range []string{"COLLECTION", "manuals", "42", "openai/text-embedding-3-small", "/srv/manual.pdf"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRuns_EmptyLedger(t *testing.T) {
	root := isolateEnv(t)
	t.Setenv("PDFCHAT_LEDGER_DB", filepath.Join(root, "ledger.db"))

	out, err := execute(t, "runs")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if !strings.Contains(out, "no ingestion runs recorded") {
		t.Errorf("got %q", out)
	}
}

func TestSettingsFrom_Unresolved(t *testing.T) {
	t.Parallel()

	if _, err := settingsFrom(context.Background()); err == nil {
		t.Fatal("expected error without resolved settings")
	}
	want := &config.Settings{Collection: "c"}
	got, err := settingsFrom(withSettings(context.Background(), want))
	if err != nil || got != want {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestVersion_JSON(t *testing.T) {
	isolateEnv(t)
	// Settings are not resolved for version, so an invalid store is ignored.
	t.Setenv("VECTOR_STORE", "chroma")

	out, err := execute(t, "version", "--json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var got version.Info
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.Version == "" || got.Commit == "" || got.GoVersion == "" {
		t.Errorf("incomplete build info: %+v", got)
	}
}
