package inspector

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/agentsim/domain/inspector"
)

// MermaidFormatter formats a transition table as a Mermaid state diagram.
type MermaidFormatter struct{}

// NewMermaidFormatter creates a new Mermaid formatter.
func NewMermaidFormatter() *MermaidFormatter {
	return &MermaidFormatter{}
}

// Format formats the data as Mermaid.
func (f *MermaidFormatter) Format(data any) ([]byte, error) {
	sm, ok := data.(*inspector.StateMachineExport)
	if !ok {
		return nil, inspector.ErrInvalidFormat
	}
	return f.formatStateMachine(sm), nil
}

// FormatType returns the format type.
func (f *MermaidFormatter) FormatType() inspector.ExportFormat {
	return inspector.FormatMermaid
}

func (f *MermaidFormatter) formatStateMachine(sm *inspector.StateMachineExport) []byte {
	var b strings.Builder

	b.WriteString("stateDiagram-v2\n")
	fmt.Fprintf(&b, "  [*] --> %s\n", sm.Initial)

	for _, trans := range sm.Transitions {
		label := trans.Label()
		if trans.Count > 0 {
			label += fmt.Sprintf(" (%d)", trans.Count)
		}
		// Mermaid reserves ':' after the label separator.
		label = strings.ReplaceAll(label, ":", " ")
		fmt.Fprintf(&b, "  %s --> %s: %s\n", trans.From, trans.To, label)
	}

	notes := false
	for _, state := range sm.States {
		if len(state.Ambiguous) == 0 {
			continue
		}
		if !notes {
			b.WriteString("\n")
			notes = true
		}
		fmt.Fprintf(&b, "  note right of %s: oracle decides %s\n", state.Name, strings.Join(state.Ambiguous, ", "))
	}

	return []byte(b.String())
}

// Ensure MermaidFormatter implements inspector.Formatter
var _ inspector.Formatter = (*MermaidFormatter)(nil)
