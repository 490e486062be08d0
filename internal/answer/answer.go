// Package answer implements the retrieval-and-answer pipeline: embed the
// question, search the collection, assemble a grounded prompt, and ask the
// chat model. [Answerer.Run] returns typed errors; [Answerer.Answer] is the
// boundary used by the CLI and never fails, rendering errors into text.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/pdfchat-go/internal/budget"
	"github.com/54b3r/pdfchat-go/internal/rag"
)

const (
	// PromptForInput is returned for an empty question.
	PromptForInput = "Por favor, forneça uma pergunta."

	// errorPrefix starts every rendered pipeline failure.
	errorPrefix = "Erro ao processar a pergunta: "
)

// ErrEmptyQuestion is returned by Run when the question is blank.
var ErrEmptyQuestion = errors.New("answer: empty question")

// Stage identifies the pipeline step that failed.
type Stage string

const (
	StageEmbed    Stage = "embed"
	StageSearch   Stage = "search"
	StageGenerate Stage = "generate"
	StageInternal Stage = "internal"
)

// Error is a pipeline failure tagged with the stage that produced it.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("answer: %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Render converts a Run error into the user-facing answer string.
func Render(err error) string {
	if errors.Is(err, ErrEmptyQuestion) {
		return PromptForInput
	}
	var ae *Error
	if errors.As(err, &ae) {
		return errorPrefix + ae.Err.Error()
	}
	return errorPrefix + err.Error()
}

// Config holds the dependencies of an Answerer.
type Config struct {
	// Embedder embeds the question. It must be the same provider and model
	// that populated the collection.
	Embedder rag.Embedder

	// Store is searched for the nearest chunks.
	Store rag.VectorStore

	// ChatModel generates the answer from the filled prompt.
	ChatModel model.BaseChatModel

	// TopK is the number of chunks retrieved. Defaults to rag.DefaultTopK.
	TopK int

	// MaxPromptTokens is the estimate above which a warning is logged.
	// Defaults to budget.DefaultMaxPromptTokens.
	MaxPromptTokens int

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Answerer answers questions from the ingested collection. Each call is an
// independent round trip; no conversation state is kept.
type Answerer struct {
	embedder  rag.Embedder
	store     rag.VectorStore
	chat      model.BaseChatModel
	topK      int
	maxTokens int
	log       *slog.Logger
}

// New constructs an Answerer.
func New(cfg Config) (*Answerer, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("answer: embedder must not be nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("answer: store must not be nil")
	}
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("answer: chat model must not be nil")
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = rag.DefaultTopK
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Answerer{
		embedder:  cfg.Embedder,
		store:     cfg.Store,
		chat:      cfg.ChatModel,
		topK:      topK,
		maxTokens: cfg.MaxPromptTokens,
		log:       log.With("component", "answer"),
	}, nil
}

// Run answers question, returning ErrEmptyQuestion for blank input without
// contacting any backend, or an *Error naming the failed stage.
func (a *Answerer) Run(ctx context.Context, question string) (answer string, err error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}

	defer func() {
		if r := recover(); r != nil {
			answer = ""
			err = &Error{Stage: StageInternal, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	start := time.Now()

	vec, err := rag.EmbedOne(ctx, a.embedder, question)
	if err != nil {
		return "", &Error{Stage: StageEmbed, Err: err}
	}

	docs, err := a.store.Search(ctx, vec, a.topK)
	if err != nil {
		return "", &Error{Stage: StageSearch, Err: err}
	}

	prompt := BuildPrompt(BuildContext(docs), question)
	msgs := []*schema.Message{schema.UserMessage(prompt)}
	if n, over := budget.Exceeds(msgs, a.maxTokens); over {
		a.log.Warn("prompt exceeds token budget", "estimated_tokens", n, "limit", a.maxTokens)
	} else {
		a.log.Debug("prompt built", "estimated_tokens", n, "chunks", len(docs))
	}

	resp, err := a.chat.Generate(ctx, msgs)
	if err != nil {
		return "", &Error{Stage: StageGenerate, Err: err}
	}
	if resp == nil {
		return "", &Error{Stage: StageGenerate, Err: errors.New("model returned no message")}
	}

	a.log.Info("question answered",
		"store", a.store.Name(),
		"chunks", len(docs),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return resp.Content, nil
}

// Answer is Run with every error rendered into the returned string.
func (a *Answerer) Answer(ctx context.Context, question string) string {
	out, err := a.Run(ctx, question)
	if err != nil {
		if !errors.Is(err, ErrEmptyQuestion) {
			a.log.Error("answer failed", "error", err)
		}
		return Render(err)
	}
	return out
}
