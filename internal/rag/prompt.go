package rag

import (
	"fmt"
	"strings"

	"github.com/cliofer/docchat/internal/index"
	"github.com/cliofer/docchat/models"
)

// NoContextMarker is rendered instead of an empty context block so the model is
// told to admit missing information rather than invent it.
const NoContextMarker = "No relevant document context was found. Tell the user you don't have that information."

const fragmentSeparator = "\n\n---\n\n"

// AssembleLimits bounds the prompt before concatenation: oldest history turns
// and lowest-similarity fragments are dropped first. Zero means unlimited.
type AssembleLimits struct {
	MaxHistoryTurns  int
	MaxContextChunks int
}

// Assemble renders the model prompt in fixed section order: persona
// instructions, document context, conversation history, new user message.
// Fragments are joined by a separator without internal metadata; history lines
// read "role: content" in chronological order.
func Assemble(persona string, hits []index.Hit, history []models.Message, userMessage string, limits AssembleLimits) string {
	if limits.MaxContextChunks > 0 && len(hits) > limits.MaxContextChunks {
		hits = hits[:limits.MaxContextChunks]
	}
	if limits.MaxHistoryTurns > 0 && len(history) > limits.MaxHistoryTurns {
		history = history[len(history)-limits.MaxHistoryTurns:]
	}

	contextBlock := NoContextMarker
	if len(hits) > 0 {
		parts := make([]string, len(hits))
		for i, hit := range hits {
			parts[i] = hit.Fragment.Content
		}
		contextBlock = strings.Join(parts, fragmentSeparator)
	}

	var historyLines []string
	for _, m := range history {
		historyLines = append(historyLines, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}

	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\nDocument context:\n")
	b.WriteString(contextBlock)
	b.WriteString("\n\nConversation history:\n")
	b.WriteString(strings.Join(historyLines, "\n"))
	b.WriteString("\n\nUser:\n")
	b.WriteString(userMessage)
	return b.String()
}
