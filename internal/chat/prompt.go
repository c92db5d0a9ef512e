package chat

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	ErrEmptySystemPrompt = errors.New("system prompt is empty")
)

// DefaultSystemPromptPath is read relative to the working directory.
const DefaultSystemPromptPath = "system_prompt.txt"

// inputTemplate wraps the retrieved context and the user's question in
// explicit tags.
const inputTemplate = `# A continuación se presenta el contexto y la pregunta del usuario, encapsulados en etiquetas claras.

<CONTEXTO>
%s
</CONTEXTO>

<PREGUNTA_USUARIO>
%s
</PREGUNTA_USUARIO>
`

// LoadSystemPrompt reads the system instructions verbatim from path.
func LoadSystemPrompt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptySystemPrompt, path)
	}
	return string(data), nil
}

// JoinContext concatenates chunk contents with blank lines, keeping order.
func JoinContext(contents []string) string {
	return strings.Join(contents, "\n\n")
}

// FormatInput renders the per-turn user block.
func FormatInput(context, question string) string {
	return fmt.Sprintf(inputTemplate, context, question)
}

// BuildMessages assembles the transcript for one turn: the system prompt, the
// prior history in chronological order, then the context and question block.
// The question is not added to history here.
func BuildMessages(systemPrompt string, history []Message, context, question string) []Message {
	messages := make([]Message, 0, len(history)+2)
	if systemPrompt != "" {
		messages = append(messages, SystemMessage(systemPrompt))
	}
	messages = append(messages, history...)
	messages = append(messages, UserMessage(FormatInput(context, question)))
	return messages
}
