package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bidcraft/bidcraft/internal/domain"
	"github.com/bidcraft/bidcraft/internal/telemetry"
)

// Fixed instructions driving the two model calls of a turn. The
// contextualize step only rewrites; the answer step is the proposal
// assistant proper.
const (
	contextualizeInstruction = "Given a chat history and the latest user question " +
		"which might reference context in the chat history, " +
		"formulate a standalone question which can be understood " +
		"without the chat history. Do NOT answer the question, just " +
		"reformulate it if needed and otherwise return it as is."

	assistantInstructionFormat = "You are a helpful AI assistant that helps with government contract proposals. " +
		"Use the contract information provided to answer questions and help generate " +
		"proposal content. If asked about proposal outlines, create realistic " +
		"structures including executive summary, technical approach, deliverables, " +
		"timeline, and compliance requirements. Be detailed and professional.\n\n" +
		"Contract Context: %s"
)

// Synthetic turn that seeds every new session with a baseline outline
// before the first real user message.
const (
	InitialOutlinePrompt = "Generate a comprehensive bid/proposal outline from this contract information. " +
		"Include executive summary points, technical approach sections, key deliverables, " +
		"rough timeline, and any compliance requirements mentioned."

	SeedOutlineQuestion = "Please generate a proposal outline for this contract."
)

// sourcePreviewChars bounds each source preview returned with an answer.
const sourcePreviewChars = 100

// Prompt roles understood by the completion client.
const (
	PromptRoleSystem    = "system"
	PromptRoleUser      = "user"
	PromptRoleAssistant = "assistant"
)

// Prompt is one message of a completion request.
type Prompt struct {
	Role    string
	Content string
}

// CompletionClient defines the interface for answer generation.
type CompletionClient interface {
	Complete(ctx context.Context, messages []Prompt) (string, error)
}

// ChunkRetriever defines the retrieval seam of a conversation turn.
type ChunkRetriever interface {
	Query(ctx context.Context, sessionID, text string, k int) ([]domain.Chunk, error)
}

// TurnResult is the outcome of one conversation turn. Retrieved and
// RewrittenQuery are ephemeral diagnostics; only Answer and Sources
// reach the caller's response.
type TurnResult struct {
	Answer         string
	Sources        []string
	RewrittenQuery string
	Retrieved      []domain.Chunk
}

// ConversationEngine answers one user turn against a session's index:
// contextualize the question, retrieve grounding chunks, generate. The
// engine never mutates session state; appending the resulting turn to
// history is the caller's job, so a failed turn leaves history intact.
type ConversationEngine struct {
	llm       CompletionClient
	retriever ChunkRetriever
	k         int
}

// NewConversationEngine creates an engine retrieving DefaultRetrieveK
// chunks per turn.
func NewConversationEngine(llm CompletionClient, retriever ChunkRetriever) *ConversationEngine {
	return NewConversationEngineWithK(llm, retriever, DefaultRetrieveK)
}

func NewConversationEngineWithK(llm CompletionClient, retriever ChunkRetriever, k int) *ConversationEngine {
	if k <= 0 {
		k = DefaultRetrieveK
	}
	return &ConversationEngine{
		llm:       llm,
		retriever: retriever,
		k:         k,
	}
}

// Respond runs one turn. With empty history the user input is used as
// the retrieval query verbatim; otherwise it is first rewritten into a
// standalone question. Model or retrieval failures surface as
// GENERATION_ERROR; no retry is attempted here.
func (e *ConversationEngine) Respond(ctx context.Context, sessionID string, history []domain.Message, userInput string) (*TurnResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ConversationEngine.Respond", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "respond",
	})
	defer span.End()

	rewritten := userInput
	if len(history) > 0 {
		query, err := e.contextualize(ctx, history, userInput)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeGeneration, "failed to contextualize question", err)
		}
		if strings.TrimSpace(query) != "" {
			rewritten = query
		}
	}

	retrieved, err := e.retriever.Query(ctx, sessionID, rewritten, e.k)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeGeneration, "failed to retrieve context", err)
	}

	answer, err := e.generate(ctx, history, userInput, retrieved)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeGeneration, "failed to generate answer", err)
	}

	return &TurnResult{
		Answer:         answer,
		Sources:        sourcePreviews(retrieved),
		RewrittenQuery: rewritten,
		Retrieved:      retrieved,
	}, nil
}

// SeedOutline runs the synthetic first turn of a fresh session.
func (e *ConversationEngine) SeedOutline(ctx context.Context, sessionID string) (*TurnResult, error) {
	return e.Respond(ctx, sessionID, nil, InitialOutlinePrompt)
}

func (e *ConversationEngine) contextualize(ctx context.Context, history []domain.Message, userInput string) (string, error) {
	messages := make([]Prompt, 0, len(history)+2)
	messages = append(messages, Prompt{Role: PromptRoleSystem, Content: contextualizeInstruction})
	messages = append(messages, historyPrompts(history)...)
	messages = append(messages, Prompt{Role: PromptRoleUser, Content: userInput})

	return e.llm.Complete(ctx, messages)
}

func (e *ConversationEngine) generate(ctx context.Context, history []domain.Message, userInput string, retrieved []domain.Chunk) (string, error) {
	texts := make([]string, len(retrieved))
	for i, c := range retrieved {
		texts[i] = c.Text
	}

	messages := make([]Prompt, 0, len(history)+2)
	messages = append(messages, Prompt{
		Role:    PromptRoleSystem,
		Content: fmt.Sprintf(assistantInstructionFormat, strings.Join(texts, "\n\n")),
	})
	messages = append(messages, historyPrompts(history)...)
	messages = append(messages, Prompt{Role: PromptRoleUser, Content: userInput})

	return e.llm.Complete(ctx, messages)
}

func historyPrompts(history []domain.Message) []Prompt {
	prompts := make([]Prompt, 0, len(history))
	for _, m := range history {
		role := PromptRoleUser
		if m.Role == domain.RoleAI {
			role = PromptRoleAssistant
		}
		prompts = append(prompts, Prompt{Role: role, Content: m.Content})
	}
	return prompts
}

func sourcePreviews(retrieved []domain.Chunk) []string {
	limit := len(retrieved)
	if limit > 3 {
		limit = 3
	}
	previews := make([]string, 0, limit)
	for _, c := range retrieved[:limit] {
		previews = append(previews, previewText(c.Text))
	}
	return previews
}

func previewText(text string) string {
	runes := []rune(text)
	if len(runes) <= sourcePreviewChars {
		return text
	}
	return string(runes[:sourcePreviewChars]) + "..."
}
