package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/jackpatch/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() (func(string) (string, error), error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(120),
	)
	if err != nil {
		return nil, err
	}
	return r.Render, nil
}

// PatchMarkdown lists a patch as a markdown table. When live is non-nil each
// row also says whether the connection currently exists.
func PatchMarkdown(title string, desired, live domain.ConnectionSet) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)

	if len(desired) == 0 {
		sb.WriteString("_No saved connections._\n")
		return sb.String()
	}

	if live == nil {
		sb.WriteString("| From | To |\n|---|---|\n")
		for _, c := range desired {
			fmt.Fprintf(&sb, "| %s | %s |\n", cell(c.From), cell(c.To))
		}
	} else {
		sb.WriteString("| From | To | Live |\n|---|---|---|\n")
		for _, c := range desired {
			state := "no"
			if live.Contains(c) {
				state = "yes"
			}
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", cell(c.From), cell(c.To), state)
		}
	}

	fmt.Fprintf(&sb, "\n%d connection(s).\n", len(desired))
	return sb.String()
}

func cell(s string) string {
	return "`" + strings.ReplaceAll(s, "|", "\\|") + "`"
}
