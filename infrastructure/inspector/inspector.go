// Package inspector renders replayed processes as JSON, Graphviz DOT or
// Mermaid diagrams.
package inspector

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrUnknownFormat is returned for a format with no registered formatter.
var ErrUnknownFormat = errors.New("unknown export format")

// Format names an export format.
type Format string

// Supported export formats.
const (
	FormatJSON    Format = "json"
	FormatDOT     Format = "dot"
	FormatMermaid Format = "mermaid"
)

// ProcessExport is the view of a process the formatters render.
type ProcessExport struct {
	ID       string        `json:"id"`
	Goal     string        `json:"goal"`
	Status   string        `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	Policy   string        `json:"policy,omitempty"`
	Cost     float64       `json:"cost"`
	Actions  int           `json:"actions"`
	Duration time.Duration `json:"duration"`
	Steps    []StepExport  `json:"steps"`
}

// StepExport is one loop iteration.
type StepExport struct {
	Number   int           `json:"number"`
	Plan     []string      `json:"plan,omitempty"`
	Action   string        `json:"action,omitempty"`
	Cost     float64       `json:"cost"`
	Duration time.Duration `json:"duration"`
	Progress bool          `json:"progress"`
	Error    string        `json:"error,omitempty"`
}

// Executed reports whether the step ran an action.
func (s StepExport) Executed() bool {
	return s.Action != ""
}

// Formatter renders a process export.
type Formatter interface {
	Format(p *ProcessExport) ([]byte, error)
	FormatType() Format
}

// Inspector dispatches exports to registered formatters.
type Inspector struct {
	formatters map[Format]Formatter
}

// New creates an inspector with the JSON, DOT and Mermaid formatters.
func New() *Inspector {
	i := &Inspector{formatters: make(map[Format]Formatter)}
	i.Register(NewJSONFormatter(WithPrettyPrint()))
	i.Register(NewDOTFormatter())
	i.Register(NewMermaidFormatter())
	return i
}

// Register adds or replaces the formatter for its format.
func (i *Inspector) Register(f Formatter) {
	i.formatters[f.FormatType()] = f
}

// Formats lists the registered formats.
func (i *Inspector) Formats() []Format {
	out := make([]Format, 0, len(i.formatters))
	for f := range i.formatters {
		out = append(out, f)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// Export renders p in format.
func (i *Inspector) Export(p *ProcessExport, format Format) ([]byte, error) {
	f, ok := i.formatters[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	out, err := f.Format(p)
	if err != nil {
		return nil, fmt.Errorf("formatting %s: %w", format, err)
	}
	return out, nil
}
