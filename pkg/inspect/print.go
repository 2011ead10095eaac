package inspect

import (
	"fmt"
	"io"
	"strings"
)

// maxTexts caps the plain text section, which is usually the longest.
const maxTexts = 10

// Print writes a human-readable dump of the snapshot.
func Print(w io.Writer, s *Snapshot) {
	fmt.Fprintf(w, "Platform: %s  Elements: %d\n", s.Platform, s.Total)
	if len(s.Contexts) > 0 {
		fmt.Fprintf(w, "Contexts: %s (current: %s)\n", strings.Join(s.Contexts, ", "), s.CurrentContext)
	}

	section(w, "Text inputs", s.TextInputs, 0)
	section(w, "Clickable", s.Clickable, 0)
	section(w, "Buttons", s.Buttons, 0)
	section(w, "Texts", s.Texts, maxTexts)
	section(w, "Images", s.Images, 0)

	fmt.Fprintf(w, "\nLogin candidates:\n")
	if len(s.Candidates) == 0 {
		fmt.Fprintln(w, "  (none detected)")
	}
	for _, c := range s.Candidates {
		fmt.Fprintf(w, "  %-9s %s\n", c.Role, formatElement(c.Element))
	}
}

func section(w io.Writer, title string, elements []Element, limit int) {
	fmt.Fprintf(w, "\n%s (%d):\n", title, len(elements))
	for i, e := range elements {
		if limit > 0 && i == limit {
			fmt.Fprintf(w, "  ... %d more\n", len(elements)-limit)
			return
		}
		fmt.Fprintf(w, "  %s\n", formatElement(e))
	}
}

func formatElement(e Element) string {
	label := e.Label()
	if len(label) > 50 {
		label = label[:50]
	}
	out := fmt.Sprintf("[%d] %s %q", e.Index, e.Class, label)
	if e.ResourceName != "" && e.ResourceName != e.Label() {
		out += " (" + e.ResourceName + ")"
	}
	return out
}
