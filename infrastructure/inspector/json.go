package inspector

import "encoding/json"

// JSONFormatter renders the export as JSON.
type JSONFormatter struct {
	pretty bool
}

// JSONOption configures the JSON formatter.
type JSONOption func(*JSONFormatter)

// WithPrettyPrint indents the output.
func WithPrettyPrint() JSONOption {
	return func(f *JSONFormatter) {
		f.pretty = true
	}
}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements Formatter.
func (f *JSONFormatter) Format(p *ProcessExport) ([]byte, error) {
	if f.pretty {
		return json.MarshalIndent(p, "", "  ")
	}
	return json.Marshal(p)
}

// FormatType implements Formatter.
func (f *JSONFormatter) FormatType() Format {
	return FormatJSON
}
