package inspector

import (
	"fmt"
	"strings"
)

// DOTFormatter renders the executed actions as a Graphviz chain from the
// start node to the terminal status.
type DOTFormatter struct{}

// NewDOTFormatter creates a DOT formatter.
func NewDOTFormatter() *DOTFormatter {
	return &DOTFormatter{}
}

// Format implements Formatter.
func (f *DOTFormatter) Format(p *ProcessExport) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "digraph %s {\n", dotID(p.ID))
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=rounded];\n\n")
	fmt.Fprintf(&b, "  start [label=%q, shape=circle];\n", "goal: "+p.Goal)

	prev := "start"
	for _, s := range p.Steps {
		if !s.Executed() {
			continue
		}
		id := fmt.Sprintf("step%d", s.Number)
		attrs := []string{fmt.Sprintf("label=%q", fmt.Sprintf("%d. %s", s.Number, s.Action))}
		switch {
		case s.Error != "":
			attrs = append(attrs, `style="rounded,filled"`, "fillcolor=lightcoral")
		case !s.Progress:
			attrs = append(attrs, `style="rounded,filled"`, "fillcolor=lightyellow")
		}
		fmt.Fprintf(&b, "  %s [%s];\n", id, strings.Join(attrs, ", "))
		fmt.Fprintf(&b, "  %s -> %s [label=%q];\n", prev, id, fmt.Sprintf("%g", s.Cost))
		prev = id
	}

	fill := "lightcoral"
	if p.Status == "COMPLETED" {
		fill = "lightgreen"
	}
	fmt.Fprintf(&b, "  finish [label=%q, shape=doublecircle, style=filled, fillcolor=%s];\n", p.Status, fill)
	fmt.Fprintf(&b, "  %s -> finish;\n", prev)
	b.WriteString("}\n")

	return []byte(b.String()), nil
}

// FormatType implements Formatter.
func (f *DOTFormatter) FormatType() Format {
	return FormatDOT
}

func dotID(s string) string {
	return strings.NewReplacer("-", "_", ".", "_", " ", "_", ":", "_").Replace(s)
}
