package answer

import (
	"strings"

	"github.com/54b3r/pdfchat-go/internal/rag"
)

// Refusal is the sentence the model is instructed to return when the
// context does not contain the answer.
const Refusal = "Não tenho informações necessárias para responder sua pergunta."

// promptTemplate is filled by BuildPrompt. The context is substituted before
// the question so a question containing the context marker is left intact.
const promptTemplate = `
CONTEXTO:
{contexto}

REGRAS:
- Responda somente com base no CONTEXTO.
- Se a informação não estiver explicitamente no CONTEXTO, responda:
  "` + Refusal + `"
- Nunca invente ou use conhecimento externo.
- Nunca produza opiniões ou interpretações além do que está escrito.

EXEMPLOS DE PERGUNTAS FORA DO CONTEXTO:
Pergunta: "Qual é a capital da França?"
Resposta: "` + Refusal + `"

Pergunta: "Quantos clientes temos em 2024?"
Resposta: "` + Refusal + `"

Pergunta: "Você acha isso bom ou ruim?"
Resposta: "` + Refusal + `"

PERGUNTA DO USUÁRIO:
{pergunta}

RESPONDA A "PERGUNTA DO USUÁRIO"
`

// BuildContext joins the retrieved chunk texts in result order, separated by
// a blank line. Scores are not included.
func BuildContext(docs []rag.Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
	}
	return strings.Join(parts, "\n\n")
}

// BuildPrompt fills the grounded-answer template with context and question.
func BuildPrompt(context, question string) string {
	before, after, _ := strings.Cut(promptTemplate, "{pergunta}")
	before = strings.Replace(before, "{contexto}", context, 1)
	return before + question + after
}
