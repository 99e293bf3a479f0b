// Package gate enforces the confirmation protocol in front of every
// write. Risk decides the protocol: normal actions take one
// affirmative answer, critical actions (anything touching the
// settings/permissions surface) take a second, distinct one.
package gate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/loamhq/ctxtidy/pkg/config"
)

// Risk classifies how much damage a wrong apply can do.
type Risk string

const (
	// RiskNormal actions are recoverable from backup with no wider effect.
	RiskNormal Risk = "normal"
	// RiskCritical actions can silently widen or narrow what the
	// assisting system may read or do.
	RiskCritical Risk = "critical"
)

// ErrDeclined is the sentinel for any gate refusal. Declining aborts
// only the current verb invocation; it is a skip, not an error.
var ErrDeclined = errors.New("confirmation declined")

// DeclinedError records which gate stage refused.
type DeclinedError struct {
	Target string
	Verb   string
	Stage  string // "confirm" or "critical-confirm"
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("%s %s on %s declined at %s gate", ErrDeclined, e.Verb, e.Target, e.Stage)
}

func (e *DeclinedError) Unwrap() error {
	return ErrDeclined
}

// Prompter asks the operator a yes/no question.
type Prompter interface {
	Confirm(prompt string) (bool, error)
}

// TerminalPrompter reads y/N answers from a terminal stream.
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer
}

// Confirm writes the prompt and reads one line. Anything but y/yes is a no.
func (p *TerminalPrompter) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(p.Out, "%s (y/N): ", prompt)
	reader := bufio.NewReader(p.In)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes", nil
}

// Gate applies the approval protocol for one run configuration.
type Gate struct {
	cfg      config.RunConfig
	prompter Prompter
}

// New returns a gate. prompter may be nil in non-interactive mode.
func New(cfg config.RunConfig, prompter Prompter) *Gate {
	return &Gate{cfg: cfg, prompter: prompter}
}

// Approve runs the protocol for a previewed change. A nil return means
// the write may proceed; *DeclinedError means skip this verb.
func (g *Gate) Approve(target, verb string, risk Risk) error {
	if err := g.firstGate(target, verb); err != nil {
		return err
	}
	if risk == RiskCritical {
		return g.criticalGate(target, verb)
	}
	return nil
}

// firstGate is the single affirmative confirmation every action needs.
// --yes satisfies it; otherwise non-interactive runs decline.
func (g *Gate) firstGate(target, verb string) error {
	if g.cfg.AssumeYes {
		return nil
	}
	if g.cfg.NonInteractive || g.prompter == nil {
		return &DeclinedError{Target: target, Verb: verb, Stage: "confirm"}
	}
	ok, err := g.prompter.Confirm(fmt.Sprintf("Apply %s to %s?", verb, target))
	if err != nil {
		return err
	}
	if !ok {
		return &DeclinedError{Target: target, Verb: verb, Stage: "confirm"}
	}
	return nil
}

// criticalGate is the second, distinct confirmation. --yes does not
// satisfy it. Unattended runs need the explicit critical opt-in or the
// gate fails closed.
func (g *Gate) criticalGate(target, verb string) error {
	if g.cfg.ApproveCritical {
		return nil
	}
	if g.cfg.NonInteractive || g.prompter == nil {
		return &DeclinedError{Target: target, Verb: verb, Stage: "critical-confirm"}
	}
	ok, err := g.prompter.Confirm(fmt.Sprintf("CRITICAL: %s rewrites the %s surface. Confirm again?", verb, target))
	if err != nil {
		return err
	}
	if !ok {
		return &DeclinedError{Target: target, Verb: verb, Stage: "critical-confirm"}
	}
	return nil
}
