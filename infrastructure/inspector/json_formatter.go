package inspector

import (
	"encoding/json"

	"github.com/felixgeelhaar/agentsim/domain/inspector"
)

// JSONFormatter formats any export as JSON.
type JSONFormatter struct {
	pretty bool
}

// JSONFormatterOption configures the JSON formatter.
type JSONFormatterOption func(*JSONFormatter)

// WithPrettyPrint enables indented output.
func WithPrettyPrint() JSONFormatterOption {
	return func(f *JSONFormatter) {
		f.pretty = true
	}
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts ...JSONFormatterOption) *JSONFormatter {
	f := &JSONFormatter{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format formats the data as JSON followed by a newline.
func (f *JSONFormatter) Format(data any) ([]byte, error) {
	if data == nil {
		return nil, inspector.ErrNoData
	}
	var (
		out []byte
		err error
	)
	if f.pretty {
		out, err = json.MarshalIndent(data, "", "  ")
	} else {
		out, err = json.Marshal(data)
	}
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// FormatType returns the format type.
func (f *JSONFormatter) FormatType() inspector.ExportFormat {
	return inspector.FormatJSON
}

// Ensure JSONFormatter implements inspector.Formatter
var _ inspector.Formatter = (*JSONFormatter)(nil)
