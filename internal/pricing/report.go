package pricing

import (
	"fmt"
	"strings"
)

const reportRule = "================================================================================"

// reportBuilder accumulates the human-readable validation report that is
// persisted next to every snapshot.
type reportBuilder struct {
	lines []string
}

func (b *reportBuilder) linef(format string, args ...interface{}) {
	b.lines = append(b.lines, fmt.Sprintf(format, args...))
}

func (b *reportBuilder) blank() {
	b.lines = append(b.lines, "")
}

func (b *reportBuilder) header(title string) {
	b.lines = append(b.lines, reportRule, title, reportRule)
}

func (b *reportBuilder) section(number int, title string) {
	b.blank()
	b.linef("%d. %s", number, title)
	b.lines = append(b.lines, strings.Repeat("-", len(title)+3))
}

func (b *reportBuilder) String() string {
	return strings.Join(b.lines, "\n") + "\n"
}
