package lineage

import (
	"fmt"
	"strings"
)

// Section headers, in report order.
const (
	HeaderScripts   = "SCRIPTS:"
	HeaderInputs    = "INPUTS:"
	HeaderOutputs   = "OUTPUTS:"
	HeaderExchanges = "EXCHANGES:"
)

// None marks a section without entries.
const None = "None"

const detailIndent = "   "

// Render returns the report text. The EXCHANGES section is present only
// for multi-script traces. With details, each entry is followed by its
// timestamps, hash and saved copy.
func (l *Lineage) Render(details bool) string {
	sections := []string{
		l.renderScripts(details),
		renderFiles(HeaderInputs, l.Inputs, l.InputStatus, details),
		renderFiles(HeaderOutputs, l.Outputs, l.OutputStatus, details),
	}
	if len(l.Scripts) > 1 {
		sections = append(sections, l.renderExchanges(details))
	}
	return strings.Join(sections, "\n")
}

func (l *Lineage) renderScripts(details bool) string {
	var b strings.Builder
	b.WriteString(HeaderScripts + "\n")
	if len(l.Scripts) == 0 {
		b.WriteString(None + "\n")
	}
	for i, s := range l.Scripts {
		entry(&b, fmt.Sprint(s.Index), statusAt(l.ScriptStatus, i), s.Path)
		if details {
			detail(&b, "timestamp", s.Timestamp)
			detail(&b, "executed", s.ExecutionTimestamp)
			detail(&b, "hash", hashText(s.Hash, s.HashAlgorithm))
			detail(&b, "saved copy", s.SavedCopy)
		}
	}
	return b.String()
}

func renderFiles(header string, files []FileRecord, statuses []Status, details bool) string {
	var b strings.Builder
	b.WriteString(header + "\n")
	if len(files) == 0 {
		b.WriteString(None + "\n")
	}
	for i, f := range files {
		entry(&b, fmt.Sprint(f.Script), statusAt(statuses, i), f.DisplayName())
		if details {
			detail(&b, "timestamp", f.Timestamp)
			detail(&b, "hash", hashText(f.Hash, f.HashAlgorithm))
			detail(&b, "saved copy", f.SavedCopyPath())
		}
	}
	return b.String()
}

func (l *Lineage) renderExchanges(details bool) string {
	var b strings.Builder
	b.WriteString(HeaderExchanges + "\n")
	if len(l.Exchanges) == 0 {
		b.WriteString(None + "\n")
	}
	for i, x := range l.Exchanges {
		entry(&b, fmt.Sprintf("%d > %d", x.Producer, x.Consumer), statusAt(l.ExchangeStatus, i), x.Input.DisplayName())
		if x.Renamed {
			fmt.Fprintf(&b, "      from %s\n", x.Output.DisplayName())
		}
		if details {
			detail(&b, "timestamp", x.Input.Timestamp)
			detail(&b, "hash", hashText(x.Input.Hash, x.Input.HashAlgorithm))
			detail(&b, "producer copy", x.Output.SavedCopyPath())
			detail(&b, "consumer copy", x.Input.SavedCopyPath())
		}
	}
	return b.String()
}

func entry(b *strings.Builder, prefix string, s Status, name string) {
	fmt.Fprintf(b, "%s %s %s\n", prefix, s.Marker(), name)
}

// detail writes one indented detail line; empty values are left out.
func detail(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s%s: %s\n", detailIndent, label, value)
}

func hashText(hash, algorithm string) string {
	if hash == "" {
		return ""
	}
	if algorithm == "" {
		return hash
	}
	return fmt.Sprintf("%s (%s)", hash, algorithm)
}

func statusAt(statuses []Status, i int) Status {
	if i < len(statuses) {
		return statuses[i]
	}
	return Unchecked
}
