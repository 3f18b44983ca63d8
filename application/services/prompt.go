package services

import (
	"fmt"
	"strings"

	"neuronote/application/ports"
	"neuronote/domain/core/entities"
	"neuronote/domain/core/valueobjects"
	pkgerrors "neuronote/pkg/errors"
)

// SystemPrompt opens every grounded chat completion.
const SystemPrompt = `You are a helpful assistant. Use the provided context and recent chat history to answer follow-up questions.
Resolve pronouns and references based on earlier conversation.
Use the memory context carefully to support your answer.`

// MemoryContext renders memories as prompt context lines.
func MemoryContext(memories []*entities.Memory) string {
	lines := make([]string, 0, len(memories))
	for _, m := range memories {
		lines = append(lines, fmt.Sprintf("- %s: %s", m.DisplayTitle(), m.Content()))
	}
	return strings.Join(lines, "\n")
}

// UserTurn is the final user message carrying the question and its context.
func UserTurn(message string, memories []*entities.Memory) string {
	body := fmt.Sprintf("## USER MESSAGE\n%s\n\n## CONTEXTUAL USER MEMORIES\n%s", message, MemoryContext(memories))
	return strings.TrimSpace(body)
}

// BuildChatPrompt assembles system instruction, prior history (oldest first)
// and the final user turn. A stored message with an unknown role is a data
// integrity failure and aborts the prompt.
func BuildChatPrompt(history []*entities.ChatMessage, message string, memories []*entities.Memory) ([]ports.CompletionMessage, error) {
	prompt := make([]ports.CompletionMessage, 0, len(history)+2)
	prompt = append(prompt, ports.CompletionMessage{Role: valueobjects.RoleSystem, Content: SystemPrompt})

	for _, m := range history {
		role, err := valueobjects.ParseRole(string(m.Role))
		if err != nil {
			return nil, pkgerrors.NewInternalError(err.Error()).WithCause(err)
		}
		prompt = append(prompt, ports.CompletionMessage{Role: role, Content: m.Content})
	}

	prompt = append(prompt, ports.CompletionMessage{
		Role:    valueobjects.RoleUser,
		Content: UserTurn(message, memories),
	})
	return prompt, nil
}

// BuildQueryPrompt is the single-turn prompt of a stateless question.
func BuildQueryPrompt(query string, memories []*entities.Memory) []ports.CompletionMessage {
	return []ports.CompletionMessage{{Role: valueobjects.RoleUser, Content: UserTurn(query, memories)}}
}
