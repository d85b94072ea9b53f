package subject

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter collects operator input for interactive mode. Prompt blocks until
// a full line is available; there is no timeout.
type Prompter interface {
	// Notice shows an informational line to the operator.
	Notice(msg string)
	// Prompt shows label and returns the next line of input without its line
	// terminator.
	Prompt(label string) (string, error)
}

// LinePrompter reads answers line by line from an io.Reader and writes
// prompts to an io.Writer.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter returns a LinePrompter reading from in and writing to out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

func (p *LinePrompter) Notice(msg string) {
	fmt.Fprintln(p.out, msg)
}

// Prompt returns io.EOF only when the input ends before any character of the
// answer was read. A final unterminated line is returned as an answer.
func (p *LinePrompter) Prompt(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
