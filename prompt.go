package kiexport

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter asks the operator a yes/no question.
type Prompter interface {
	Confirm(question string) (bool, error)
}

// LinePrompter asks on Out and reads the answer line from In. Anything
// other than "y" or "yes" is a no.
type LinePrompter struct {
	In  io.Reader
	Out io.Writer

	r *bufio.Reader
}

func (p *LinePrompter) Confirm(question string) (bool, error) {
	if p.r == nil {
		p.r = bufio.NewReader(p.In)
	}
	fmt.Fprintf(p.Out, "%s [y/N]: ", question)

	line, err := p.r.ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
