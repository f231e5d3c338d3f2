package pipeline

import (
	"fmt"
	"strings"

	"github.com/yildizm/go-promptfmt"

	"github.com/Sakthi-S29/trackwise/internal/ai"
)

// RefusalAnswer is the fixed reply the assistant is instructed to give
// for questions it must not answer.
const RefusalAnswer = "Sorry, I can't answer that."

// managedSystemPrompt is the persona and rule set for the managed
// variant's assistant. The rules constrain answers to the retrieved
// records and pin the refusal phrasing.
const managedSystemPrompt = `You are a helpful and intelligent personal finance assistant designed to analyze and respond to users based on their past transaction history. Follow these rules:

1. Use only the provided transaction records to answer.
2. Answer clearly and concisely. If the user asks for a breakdown, list totals by category or time.
3. If the question is too vague, generic, or unrelated to personal finance or transaction data, reply with: "Sorry, I can't answer that."
4. Always be specific — if dates, categories, or vendors are mentioned, include them in your response.
5. DO NOT give advice, tips, or recommendations — only answer the user's question factually.
6. Even if the category is not explicitly mentioned in the transaction records, you can infer it based on the context provided. And categorize transactions based on the context of the records.
7. DO NOT hallucinate or assume data that is not in the transaction records.`

// localSystemPrompt is the lighter persona used by the self-hosted
// variant's smaller model.
const localSystemPrompt = "You are a helpful financial assistant. Based on the user's transaction records below, answer the question accurately."

// Default stop sequences per variant. The managed stop cuts the model
// off before it can fabricate the next conversational turn; the local
// stops do the same for the completion-style local model.
var (
	managedStopSequences = []string{"\n\nHuman:"}
	localStopSequences   = []string{"\nUser:", "\nQuestion:"}
)

// FinanceAssistantPattern builds the retrieval-grounded question
// prompt for either variant.
type FinanceAssistantPattern struct {
	promptfmt.BasePattern
	Query string
	Texts []string
	Local bool
}

// NewFinanceAssistantPattern creates the pattern for one question over
// the retrieved context.
func NewFinanceAssistantPattern(query string, texts []string) *FinanceAssistantPattern {
	return &FinanceAssistantPattern{
		BasePattern: promptfmt.BasePattern{
			Description: "Answers personal finance questions grounded in retrieved transaction summaries",
			Tags:        []string{"finance", "rag", "transactions"},
		},
		Query: query,
		Texts: texts,
	}
}

// ForLocal switches the pattern to the self-hosted phrasing
func (p *FinanceAssistantPattern) ForLocal() *FinanceAssistantPattern {
	p.Local = true
	return p
}

// Build renders the prompt
func (p *FinanceAssistantPattern) Build() *promptfmt.Prompt {
	if p.Local {
		return promptfmt.New().
			System(localSystemPrompt).
			User("%s", p.localBody()).
			Build()
	}
	return promptfmt.New().
		System(managedSystemPrompt).
		User("%s", p.managedBody()).
		Build()
}

// managedBody joins the retrieved records with blank lines between
// them, fenced off from the question.
func (p *FinanceAssistantPattern) managedBody() string {
	context := strings.Join(p.Texts, "\n\n")
	return fmt.Sprintf("---\n\nTransaction Records:\n%s\n\n---\n\nUser question: %s", context, p.Query)
}

// localBody lists each record as a bullet and ends mid-turn at
// "Answer:" so the completion model continues from there.
func (p *FinanceAssistantPattern) localBody() string {
	bullets := make([]string, 0, len(p.Texts))
	for _, text := range p.Texts {
		bullets = append(bullets, "- "+text)
	}
	return fmt.Sprintf("Records:\n%s\n\nQuestion: %s\nAnswer:", strings.Join(bullets, "\n"), p.Query)
}

// CompletionRequest turns the pattern into a provider request with the
// variant's stop sequences applied.
func (p *FinanceAssistantPattern) CompletionRequest(maxTokens int, temperature float64) *ai.CompletionRequest {
	prompt := p.Build()
	req := &ai.CompletionRequest{
		Prompt:       prompt.String(),
		SystemPrompt: prompt.SystemPrompt,
		MaxTokens:    maxTokens,
		Temperature:  temperature,
	}
	if p.Local {
		req.StopSequences = localStopSequences
	} else {
		req.StopSequences = managedStopSequences
	}
	return req
}
