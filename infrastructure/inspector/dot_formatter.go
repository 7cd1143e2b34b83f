package inspector

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/agentsim/domain/inspector"
)

// DOTFormatter formats a transition table as Graphviz DOT.
type DOTFormatter struct{}

// NewDOTFormatter creates a new DOT formatter.
func NewDOTFormatter() *DOTFormatter {
	return &DOTFormatter{}
}

// Format formats the data as DOT.
func (f *DOTFormatter) Format(data any) ([]byte, error) {
	sm, ok := data.(*inspector.StateMachineExport)
	if !ok {
		return nil, inspector.ErrInvalidFormat
	}
	return f.formatStateMachine(sm), nil
}

// FormatType returns the format type.
func (f *DOTFormatter) FormatType() inspector.ExportFormat {
	return inspector.FormatDOT
}

func (f *DOTFormatter) formatStateMachine(sm *inspector.StateMachineExport) []byte {
	var b strings.Builder

	b.WriteString("digraph AgentStatechart {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=rounded];\n")
	b.WriteString("\n")

	for _, state := range sm.States {
		attrs := []string{fmt.Sprintf("label=%q", string(state.Name))}
		switch {
		case state.Name == sm.Initial:
			attrs = append(attrs, `style="rounded,filled"`, "fillcolor=lightgreen")
		case len(state.Ambiguous) > 0:
			attrs = append(attrs, `style="rounded,filled"`, "fillcolor=lightyellow")
		}
		fmt.Fprintf(&b, "  %s [%s];\n", sanitizeDOTID(string(state.Name)), strings.Join(attrs, ", "))
	}

	b.WriteString("\n")

	for _, trans := range sm.Transitions {
		attrs := []string{fmt.Sprintf("label=%q", trans.Label())}
		if trans.Guard != "" {
			attrs = append(attrs, "style=dashed")
		}
		if trans.Count > 0 {
			attrs = append(attrs, fmt.Sprintf("penwidth=%d", min(trans.Count/10+1, 5)))
		}
		fmt.Fprintf(&b, "  %s -> %s [%s];\n",
			sanitizeDOTID(string(trans.From)),
			sanitizeDOTID(string(trans.To)),
			strings.Join(attrs, ", "),
		)
	}

	b.WriteString("}\n")

	return []byte(b.String())
}

func sanitizeDOTID(s string) string {
	return strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(s)
}

// Ensure DOTFormatter implements inspector.Formatter
var _ inspector.Formatter = (*DOTFormatter)(nil)
