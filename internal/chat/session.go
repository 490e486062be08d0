// Package chat runs the interactive question loop on a terminal.
package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

const (
	rule     = "============================================================"
	divider  = "------------------------------------------------------------"
	farewell = "Encerrando o chat. Até logo!"
)

// exitCommands end the session, compared case-insensitively.
var exitCommands = map[string]struct{}{
	"sair": {}, "exit": {}, "quit": {}, "q": {},
}

// IsExitCommand reports whether input is one of sair, exit, quit or q,
// ignoring case and surrounding whitespace.
func IsExitCommand(input string) bool {
	_, ok := exitCommands[strings.ToLower(strings.TrimSpace(input))]
	return ok
}

// AnswerFunc answers one question. It is expected to return a displayable
// string even on failure.
type AnswerFunc func(ctx context.Context, question string) string

// Session reads questions from in and writes answers to out, one at a time.
type Session struct {
	in     io.Reader
	out    io.Writer
	answer AnswerFunc
}

// NewSession constructs a Session.
func NewSession(in io.Reader, out io.Writer, answer AnswerFunc) *Session {
	return &Session{in: in, out: out, answer: answer}
}

// Run prints the banner and loops until an exit command, end of input, or
// ctx cancellation (Ctrl+C). Each question is answered before the next line
// is read; a panic while answering is printed and the loop continues.
func (s *Session) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, rule)
	fmt.Fprintln(s.out, "Sistema de Busca Semântica - Chat com PDF")
	fmt.Fprintln(s.out, rule)
	fmt.Fprintln(s.out, "Digite 'sair' ou 'exit' para encerrar o chat.")
	fmt.Fprintln(s.out)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(s.in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(s.out, "PERGUNTA: ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintf(s.out, "\n\n%s\n", farewell)
			return nil
		case err := <-readErr:
			fmt.Fprintf(s.out, "\n\n%s\n", farewell)
			return err
		case line = <-lines:
		}

		question := strings.TrimSpace(line)
		if IsExitCommand(question) {
			fmt.Fprintf(s.out, "\n%s\n", farewell)
			return nil
		}
		if question == "" {
			fmt.Fprintln(s.out, "Por favor, digite uma pergunta.")
			fmt.Fprintln(s.out)
			continue
		}

		s.ask(ctx, question)
	}
}

// ask answers one question, printing any panic instead of propagating it.
func (s *Session) ask(ctx context.Context, question string) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(s.out, "\nErro: %v\n\n", r)
			fmt.Fprintln(s.out, divider)
			fmt.Fprintln(s.out)
		}
	}()

	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, "Processando...")
	resp := s.answer(ctx, question)
	fmt.Fprintf(s.out, "RESPOSTA: %s\n\n", resp)
	fmt.Fprintln(s.out, divider)
	fmt.Fprintln(s.out)
}
