// Package audit records one structured log line per CLI command invocation:
// the command, where configuration came from, and a sanitised view of the
// environment. Secrets are logged as presence/absence only.
package audit

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// entry is an env var included in the audit line.
type entry struct {
	key    string
	secret bool
}

// keys is the ordered list of env vars included in every audit entry.
var keys = []entry{
	{"PDF_PATH", false},
	{"PROJECT_ROOT", false},
	{"EMBEDDING_PROVIDER", false},
	{"EMBEDDING_MODEL", false},
	{"LLM_PROVIDER", false},
	{"LLM_MODEL", false},
	{"OPENAI_API_KEY", true},
	{"OPENAI_BASE_URL", false},
	{"GOOGLE_API_KEY", true},
	{"OLLAMA_HOST", false},
	{"VECTOR_STORE", false},
	{"COLLECTION_NAME", false},
	{"POSTGRES_HOST", false},
	{"POSTGRES_PORT", false},
	{"POSTGRES_DB", false},
	{"POSTGRES_USER", false},
	{"POSTGRES_PASSWORD", true},
	{"QDRANT_HOST", false},
	{"QDRANT_PORT", false},
	{"QDRANT_API_KEY", true},
	{"PDFCHAT_API_KEY", true},
	{"PDFCHAT_LEDGER_DB", false},
	{"LOG_LEVEL", false},
	{"LOG_FORMAT", false},
	{"LANGFUSE_PUBLIC_KEY", true},
	{"LANGFUSE_SECRET_KEY", true},
}

// Sources describes where configuration was read from.
type Sources struct {
	// ConfigFile is the YAML file applied, or "".
	ConfigFile string
	// DotEnv is the .env file applied, or "".
	DotEnv string
}

// LogCommandStart emits the audit entry for command.
func LogCommandStart(ctx context.Context, log *slog.Logger, command string, src Sources) {
	attrs := make([]slog.Attr, 0, len(keys)+3)
	attrs = append(attrs,
		slog.String("command", command),
		slog.String("config_file", sanitisePath(src.ConfigFile)),
		slog.String("dotenv_file", sanitisePath(src.DotEnv)),
	)
	for _, e := range keys {
		attrs = append(attrs, slog.String(e.key, SanitiseKey(e.key, os.Getenv(e.key))))
	}
	log.LogAttrs(ctx, slog.LevelInfo, "audit: command start", attrs...)
}

// SanitiseKey returns "set" or "unset" for known secret keys, or the value
// (or "unset") for everything else.
func SanitiseKey(key, value string) string {
	for _, e := range keys {
		if e.key == key && e.secret {
			return presence(value)
		}
	}
	if value == "" {
		return "unset"
	}
	return value
}

func presence(v string) string {
	if v != "" {
		return "set"
	}
	return "unset"
}

// sanitisePath returns p with the home directory collapsed to "~", or "none".
func sanitisePath(p string) string {
	if p == "" {
		return "none"
	}
	home, err := os.UserHomeDir()
	if err == nil && strings.HasPrefix(p, home) {
		return "~" + p[len(home):]
	}
	return p
}
