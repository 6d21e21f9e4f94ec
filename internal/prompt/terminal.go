// Package prompt asks the operator for input on a terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"

	"connman-agent/internal/agent"
	"connman-agent/internal/payload"
)

// Fields whose input is never echoed.
var secretFields = map[string]bool{
	"Passphrase":          true,
	"PreviousPassphrase":  true,
	"Password":            true,
	"WPS":                 true,
	"OpenConnect.Cookie":  true,
	"OpenVPN.Password":    true,
	"VPNC.IPSec.Secret":   true,
	"VPNC.Xauth.Password": true,
}

var (
	heading = color.New(color.FgCyan, color.Bold)
	warning = color.New(color.FgYellow)
	faint   = color.New(color.Faint)
)

var _ agent.Prompter = (*Terminal)(nil)

// Terminal implements agent.Prompter on a line-oriented terminal. End of
// input (Ctrl-D) cancels the pending request.
//
// mu is held for a whole dialog. Info does not take it, so a cancel notice
// is printed while a prompt is still waiting for input.
type Terminal struct {
	mu     sync.Mutex
	in     *bufio.Reader
	fd     int
	tty    bool
	out    *lockedWriter
	logger *slog.Logger
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// NewTerminal reads answers from in and writes prompts to out. Secret
// fields are read without echo when in is a terminal.
func NewTerminal(in io.Reader, out io.Writer, logger *slog.Logger) *Terminal {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	t := &Terminal{in: bufio.NewReader(in), out: &lockedWriter{w: out}, logger: logger}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.fd = int(f.Fd())
		t.tty = true
	}
	return t
}

// RequestInput shows informational fields and asks for the others. A
// prefilled value is offered as the default and kept on a blank answer.
// Fields that end up blank are not part of the reply.
func (t *Terminal) RequestInput(role agent.Role, fields payload.Fields, reqs payload.Requirements) (agent.Reply, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	heading.Fprintf(t.out, "\n%s: information required (Ctrl-D to cancel)\n", role)

	reply := agent.Reply{}
	for _, key := range fields.Keys() {
		value := fields[key]
		if reqs[key] == payload.Informational {
			if value != "" {
				faint.Fprintf(t.out, "  %s: %s\n", key, value)
			}
			continue
		}

		secret := secretFields[key]
		answer, err := t.ask(fieldPrompt(key, value, secret), secret)
		if err != nil {
			t.logger.Debug("input prompt ended", "field", key, "error", err)
			return nil, false
		}
		if answer == "" {
			answer = value
		}
		if answer != "" {
			reply[key] = answer
		}
	}
	return reply, true
}

func fieldPrompt(key, value string, secret bool) string {
	switch {
	case value == "":
		return fmt.Sprintf("  %s: ", key)
	case secret:
		return fmt.Sprintf("  %s [unchanged]: ", key)
	default:
		return fmt.Sprintf("  %s [%s]: ", key, value)
	}
}

// RequestBrowser asks the operator to open url and confirm the login.
func (t *Terminal) RequestBrowser(url string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	heading.Fprintln(t.out, "\nLogin required")
	fmt.Fprintf(t.out, "  Open %s in a browser to continue.\n", url)
	answer, err := t.ask("  Continue? [Y/n] ", false)
	if err != nil {
		return false
	}
	return !isNo(answer)
}

// ReportError shows message and asks whether to retry. The default is no.
func (t *Terminal) ReportError(message string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	warning.Fprintf(t.out, "\nConnman returned the following error: %s\n", message)
	answer, err := t.ask("  Would you like to retry? [y/N] ", false)
	if err != nil {
		return false
	}
	return isYes(answer)
}

// Info prints message without waiting for a pending dialog.
func (t *Terminal) Info(message string) {
	warning.Fprintf(t.out, "\n%s\n", message)
}

func (t *Terminal) ask(prompt string, secret bool) (string, error) {
	fmt.Fprint(t.out, prompt)

	if secret && t.tty {
		b, err := term.ReadPassword(t.fd)
		fmt.Fprintln(t.out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := t.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func isYes(s string) bool {
	s = strings.ToLower(s)
	return s == "y" || s == "yes"
}

func isNo(s string) bool {
	s = strings.ToLower(s)
	return s == "n" || s == "no"
}
