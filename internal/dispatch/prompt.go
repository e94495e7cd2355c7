package dispatch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/codefionn/toolrelay/internal/llm"
	"github.com/codefionn/toolrelay/internal/selection"
	"github.com/codefionn/toolrelay/internal/tools"
)

// reservedArgs are consumed by the dispatcher itself and never echoed into
// the prompt.
var reservedArgs = map[string]bool{
	"prompt":         true,
	"model":          true,
	"reasoning_mode": true,
	"temperature":    true,
	"files":          true,
	"history":        true,
}

const (
	requestHeader   = "=== REQUEST ==="
	errorContextArg = "error_context"
)

// buildMessages assembles the provider messages: the tool's system prompt,
// the admitted history in chronological order and a final user message with
// the tool options, the selected files and the prompt.
func buildMessages(spec *tools.ToolSpec, prompt string, args map[string]any, files selection.SelectionResult, turns []selection.Item) []llm.Message {
	messages := make([]llm.Message, 0, len(turns)+2)
	if spec.SystemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: spec.SystemPrompt})
	}
	for _, turn := range turns {
		role := turn.Role
		if role != llm.RoleAssistant {
			role = llm.RoleUser
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}

	var sb strings.Builder
	if options := formatArgs(args); options != "" {
		sb.WriteString(options)
		sb.WriteString("\n")
	}
	if len(files.Items) > 0 {
		sb.WriteString(files.Manifest())
		sb.WriteString("\n")
		for _, item := range files.Items {
			writeFile(&sb, item)
		}
	}
	sb.WriteString(requestHeader)
	sb.WriteString("\n")
	sb.WriteString(prompt)

	return append(messages, llm.Message{Role: llm.RoleUser, Content: sb.String()})
}

func writeFile(sb *strings.Builder, item selection.Item) {
	marker := ""
	if item.Summarized {
		marker = " [SUMMARIZED]"
	}
	fmt.Fprintf(sb, "--- BEGIN FILE: %s%s ---\n", item.ID, marker)
	sb.WriteString(item.Content)
	if !strings.HasSuffix(item.Content, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("--- END FILE ---\n\n")
}

// formatArgs renders the tool specific arguments as "Label: value" lines in
// key order.
func formatArgs(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for key := range args {
		if !reservedArgs[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		value := formatValue(args[key])
		if value == "" {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", label(key), value)
	}
	return sb.String()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := formatValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}

// label turns "error_context" into "Error context".
func label(key string) string {
	text := strings.ReplaceAll(key, "_", " ")
	if text == "" {
		return text
	}
	return strings.ToUpper(text[:1]) + text[1:]
}

// mentionText is the prompt plus every tool specific value except the error
// context, which marks files as error-referenced rather than mentioned.
func mentionText(prompt string, args map[string]any) string {
	parts := []string{prompt}
	keys := make([]string, 0, len(args))
	for key := range args {
		if !reservedArgs[key] && key != errorContextArg {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		if s := formatValue(args[key]); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}
