package cfdns

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

var (
	errNotNumber  = errors.New("Selection must be a number")
	errEmptyInput = errors.New("Nothing to select, press enter to continue")
)

type rangeError struct {
	max int
}

func (e rangeError) Error() string {
	return fmt.Sprintf("Inputs must be between 1 and %d", e.max)
}

// ParseSelection turns a comma separated list of 1-based indices into 0-based
// indices into a list of n items. Order and duplicates are kept. A blank input
// is only valid, as the empty selection, when n is zero.
func ParseSelection(input string, n int) ([]int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		if n == 0 {
			return []int{}, nil
		}
		return nil, errNotNumber
	}

	var selected []int
	for _, field := range strings.Split(input, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, errNotNumber
		}
		selected = append(selected, i)
	}

	if n == 0 {
		return nil, errEmptyInput
	}

	for _, i := range selected {
		if i < 1 || i > n {
			return nil, rangeError{max: n}
		}
	}

	for k := range selected {
		selected[k]--
	}
	return selected, nil
}

// Prompter reads operator answers line by line. Every question loops on
// invalid answers and ends with an error once input is exhausted.
type Prompter struct {
	in     *bufio.Reader
	out    io.Writer
	secret func() (string, error)
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// NewTerminalPrompter reads from f and hides secrets typed on it when f is a
// terminal.
func NewTerminalPrompter(f *os.File, out io.Writer) *Prompter {
	p := NewPrompter(f, out)

	fd := int(f.Fd())
	if term.IsTerminal(fd) {
		p.secret = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(out)
			return string(b), err
		}
	}

	return p
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Line asks prompt and returns the answer without its line ending.
func (p *Prompter) Line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	return p.readLine()
}

// Secret is Line without echo when reading from a terminal.
func (p *Prompter) Secret(prompt string) (string, error) {
	if p.secret == nil {
		return p.Line(prompt)
	}

	fmt.Fprint(p.out, prompt)
	return p.secret()
}

// Confirm accepts Y or YES in any case, everything else is a no.
func (p *Prompter) Confirm(prompt string) (bool, error) {
	answer, err := p.Line(prompt)
	if err != nil {
		return false, err
	}

	switch strings.ToUpper(strings.TrimSpace(answer)) {
	case "Y", "YES":
		return true, nil
	default:
		return false, nil
	}
}

// Choose lists items under header and asks for a selection until a valid one
// is entered. It returns 0-based indices.
func (p *Prompter) Choose(header string, items []string, prompt string) ([]int, error) {
	for {
		fmt.Fprintln(p.out, header)
		for i, item := range items {
			fmt.Fprintf(p.out, "\t%d: %s\n", i+1, item)
		}
		if len(items) == 0 {
			fmt.Fprintln(p.out, "\t(none)")
		}

		answer, err := p.Line(prompt)
		if err != nil {
			return nil, err
		}

		selected, err := ParseSelection(answer, len(items))
		if err == nil {
			return selected, nil
		}

		fmt.Fprintln(p.out, err.Error())
		if errors.As(err, &rangeError{}) {
			fmt.Fprintln(p.out)
		}
	}
}
