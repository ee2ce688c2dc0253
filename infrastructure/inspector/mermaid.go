package inspector

import (
	"fmt"
	"strings"
)

// MermaidFormatter renders the executed actions as a Mermaid flowchart.
type MermaidFormatter struct{}

// NewMermaidFormatter creates a Mermaid formatter.
func NewMermaidFormatter() *MermaidFormatter {
	return &MermaidFormatter{}
}

// Format implements Formatter.
func (f *MermaidFormatter) Format(p *ProcessExport) ([]byte, error) {
	var b strings.Builder

	b.WriteString("flowchart LR\n")
	fmt.Fprintf(&b, "  start((%q))\n", "goal: "+p.Goal)

	prev := "start"
	var failed, idle []string
	for _, s := range p.Steps {
		if !s.Executed() {
			continue
		}
		id := fmt.Sprintf("step%d", s.Number)
		fmt.Fprintf(&b, "  %s -- %g --> %s[%q]\n", prev, s.Cost, id, fmt.Sprintf("%d. %s", s.Number, s.Action))
		switch {
		case s.Error != "":
			failed = append(failed, id)
		case !s.Progress:
			idle = append(idle, id)
		}
		prev = id
	}
	fmt.Fprintf(&b, "  %s --> finish(((%s)))\n", prev, p.Status)

	if len(failed) > 0 {
		b.WriteString("  classDef failed fill:#f08080\n")
		fmt.Fprintf(&b, "  class %s failed\n", strings.Join(failed, ","))
	}
	if len(idle) > 0 {
		b.WriteString("  classDef idle fill:#ffffe0\n")
		fmt.Fprintf(&b, "  class %s idle\n", strings.Join(idle, ","))
	}
	if p.Status == "COMPLETED" {
		b.WriteString("  style finish fill:#90ee90\n")
	}

	return []byte(b.String()), nil
}

// FormatType implements Formatter.
func (f *MermaidFormatter) FormatType() Format {
	return FormatMermaid
}
