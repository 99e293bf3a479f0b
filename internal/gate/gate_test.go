package gate

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loamhq/ctxtidy/pkg/config"
)

type scriptedPrompter struct {
	answers []bool
	asked   []string
}

func (p *scriptedPrompter) Confirm(prompt string) (bool, error) {
	p.asked = append(p.asked, prompt)
	if len(p.answers) == 0 {
		return false, nil
	}
	ans := p.answers[0]
	p.answers = p.answers[1:]
	return ans, nil
}

func TestNormalRiskSingleConfirmation(t *testing.T) {
	p := &scriptedPrompter{answers: []bool{true}}
	g := New(config.RunConfig{}, p)

	require.NoError(t, g.Approve("ignore", "dedupe", RiskNormal))
	assert.Len(t, p.asked, 1)
}

func TestNormalRiskDeclined(t *testing.T) {
	p := &scriptedPrompter{answers: []bool{false}}
	g := New(config.RunConfig{}, p)

	err := g.Approve("ignore", "dedupe", RiskNormal)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeclined))

	var declined *DeclinedError
	require.True(t, errors.As(err, &declined))
	assert.Equal(t, "confirm", declined.Stage)
}

func TestAssumeYesSkipsFirstGateOnly(t *testing.T) {
	p := &scriptedPrompter{answers: []bool{true}}
	g := New(config.RunConfig{AssumeYes: true}, p)

	// Normal: no prompt at all.
	require.NoError(t, g.Approve("ignore", "dedupe", RiskNormal))
	assert.Empty(t, p.asked)

	// Critical: --yes does not satisfy the second gate.
	require.NoError(t, g.Approve("settings", "append-deny", RiskCritical))
	require.Len(t, p.asked, 1)
	assert.Contains(t, p.asked[0], "CRITICAL")
}

func TestCriticalDoubleConfirmInteractive(t *testing.T) {
	p := &scriptedPrompter{answers: []bool{true, false}}
	g := New(config.RunConfig{}, p)

	err := g.Approve("settings", "prune-always-include", RiskCritical)
	require.Error(t, err)

	var declined *DeclinedError
	require.True(t, errors.As(err, &declined))
	assert.Equal(t, "critical-confirm", declined.Stage)
	assert.Len(t, p.asked, 2)
}

func TestNonInteractiveCriticalFailsClosed(t *testing.T) {
	// --yes alone must never push a critical change through unattended.
	g := New(config.RunConfig{NonInteractive: true, AssumeYes: true}, nil)

	err := g.Approve("settings", "append-deny", RiskCritical)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeclined))
}

func TestNonInteractiveCriticalWithExplicitOptIn(t *testing.T) {
	g := New(config.RunConfig{NonInteractive: true, AssumeYes: true, ApproveCritical: true}, nil)
	assert.NoError(t, g.Approve("settings", "append-deny", RiskCritical))
}

func TestNonInteractiveNormalWithoutYesDeclined(t *testing.T) {
	g := New(config.RunConfig{NonInteractive: true}, nil)
	err := g.Approve("ignore", "dedupe", RiskNormal)
	assert.True(t, errors.Is(err, ErrDeclined))
}

func TestTerminalPrompter(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"Y\n", true},
		{"n\n", false},
		{"\n", false},
		{"whatever\n", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		p := &TerminalPrompter{In: strings.NewReader(tt.input), Out: &out}
		got, err := p.Confirm("Proceed?")
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got, "input %q", tt.input)
		assert.Contains(t, out.String(), "Proceed? (y/N)")
	}
}

func TestTransactionLegalFlow(t *testing.T) {
	tx := NewTransaction()
	for _, next := range []State{StatePreviewed, StateConfirmed, StateCriticalConfirmed, StateApplied} {
		require.NoError(t, tx.To(next))
	}
	assert.True(t, tx.State().Terminal())
}

func TestTransactionIllegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		walk []State
	}{
		{"apply without preview", []State{StateApplied}},
		{"apply without confirm", []State{StatePreviewed, StateApplied}},
		{"confirm twice", []State{StatePreviewed, StateConfirmed, StateConfirmed}},
		{"leave terminal decline", []State{StatePreviewed, StateDeclined, StateConfirmed}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := NewTransaction()
			var err error
			for _, next := range tt.walk {
				if err = tx.To(next); err != nil {
					break
				}
			}
			assert.Error(t, err)
		})
	}
}
