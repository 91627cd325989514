package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// loginHint stands in for the login screen: the console cannot log in by
// itself, so it tells the user how to bring a fresh token.
type loginHint struct {
	out io.Writer
}

func (h loginHint) RedirectToLogin() {
	fmt.Fprintln(h.out, "Log in again and store the new token with: console session import --token <jwt>")
}

// prompt asks yes/no questions on the terminal. Anything other than y or
// yes counts as no, including end of input.
type prompt struct {
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
}

func newPrompt(in io.Reader, out io.Writer, assumeYes bool) *prompt {
	return &prompt{in: bufio.NewReader(in), out: out, assumeYes: assumeYes}
}

func (p *prompt) Confirm(question string) bool {
	if p.assumeYes {
		return true
	}
	fmt.Fprintf(p.out, "%s [y/N] ", question)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(p.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
