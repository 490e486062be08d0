package embedder

import (
	"log/slog"
	"strings"

	"github.com/54b3r/pdfchat-go/internal/config"
)

// knownChatModelFragments identify chat/completion models which are not
// suitable for embedding.
var knownChatModelFragments = []string{
	"gpt-4",
	"gpt-3.5",
	"gpt-35",
	"o1",
	"o3",
	"gemini-",
	"llama3",
	"llama2",
	"llama-3",
	"mistral",
	"mixtral",
	"gemma",
	"phi3",
	"claude",
	"deepseek",
	"qwen",
}

// looksLikeChatModel returns true when the model name resembles a known
// chat/completion model rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	if strings.Contains(lower, "embed") {
		return false
	}
	for _, frag := range knownChatModelFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// Validate logs a warning when the configured embedding model looks like a
// chat model. It never fails: the provider is the final judge.
func Validate(log *slog.Logger, s *config.Settings) {
	model := ModelName(s)
	if !looksLikeChatModel(model) {
		return
	}
	log.Warn("embedder: EMBEDDING_MODEL looks like a chat model, not an embedding model",
		slog.String("provider", string(s.EmbeddingProvider)),
		slog.String("model", model),
		slog.String("hint", "use a dedicated embedding model e.g. text-embedding-3-small, text-embedding-004, nomic-embed-text"),
	)
}
