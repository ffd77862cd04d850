package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cryguy/jsbridge"
	"golang.org/x/term"
)

// lineReader yields one line of input at a time; io.EOF ends the session.
type lineReader interface {
	ReadLine() (string, error)
}

type scannerReader struct {
	s *bufio.Scanner
}

func (r scannerReader) ReadLine() (string, error) {
	if !r.s.Scan() {
		if err := r.s.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.s.Text(), nil
}

// runREPL starts a session on in. A terminal gets line editing and
// history; anything else is read line by line without prompts.
func runREPL(cfg jsbridge.Config, in *os.File, out io.Writer) error {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		s, err := newSession(cfg, out)
		if err != nil {
			return err
		}
		defer s.Close()
		return repl(s, scannerReader{bufio.NewScanner(in)}, out)
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("entering raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{in, out}, "> ")
	if w, h, err := term.GetSize(fd); err == nil {
		t.SetSize(w, h)
	}
	s, err := newSession(cfg, t)
	if err != nil {
		return err
	}
	defer s.Close()
	return repl(s, t, t)
}

// repl evaluates each line and prints its completion value, then fires any
// timers that are already due. Script errors are printed and the session
// continues; a closed context ends it.
func repl(s *session, in lineReader, out io.Writer) error {
	for {
		line, err := in.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case ".exit":
			return nil
		}

		result, err := s.EvalString(line)
		if err == nil {
			fmt.Fprintln(out, result)
			err = s.drain(0)
		}
		switch {
		case errors.Is(err, jsbridge.ErrClosed), errors.Is(err, jsbridge.ErrTimeout):
			return err
		case err != nil:
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}
