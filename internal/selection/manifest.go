package selection

import (
	"fmt"
	"strings"
)

// Manifest renders the admitted items grouped by relevance, marking
// summaries, followed by totals.
func (r SelectionResult) Manifest() string {
	if len(r.Items) == 0 {
		return "No files included"
	}

	groups := make(map[Relevance][]Item)
	for _, item := range r.Items {
		level := RelevanceOf(item.Score)
		groups[level] = append(groups[level], item)
	}

	var sb strings.Builder
	sb.WriteString("## File Manifest\n")
	for _, level := range relevanceOrder {
		items := groups[level]
		if len(items) == 0 {
			continue
		}
		name := string(level)
		fmt.Fprintf(&sb, "\n### %s relevance\n", strings.ToUpper(name[:1])+name[1:])
		for _, item := range items {
			status := ""
			if item.Summarized {
				status = " [SUMMARIZED]"
			}
			fmt.Fprintf(&sb, "- %s (%d tokens)%s\n", item.ID, item.Tokens, status)
		}
	}

	fmt.Fprintf(&sb, "\n**Total: %d files, %d tokens**", len(r.Items), r.UsedTokens)
	if n := r.Summarized(); n > 0 {
		fmt.Fprintf(&sb, "\n**%d files summarized to fit token budget**", n)
	}
	if dropped := r.Dropped(); len(dropped) > 0 {
		fmt.Fprintf(&sb, "\n**%d files omitted**", len(dropped))
	}
	return sb.String()
}
