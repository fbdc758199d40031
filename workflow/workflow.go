// Package workflow sequences the node's report cycle as a table-driven
// state machine: one handler per state, success and failure edges, and a
// retry budget shared by the whole run.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// State identifies one step of the report cycle. Stop is terminal and has
// no transition rule.
type State int

const (
	ConnectWifi State = iota
	SyncTime
	OpenConnection
	SendData
	ReceiveData
	CloseConnection
	PowerDown
	Stop
)

func (s State) String() string {
	switch s {
	case ConnectWifi:
		return "connect-wifi"
	case SyncTime:
		return "sync-time"
	case OpenConnection:
		return "open-connection"
	case SendData:
		return "send-data"
	case ReceiveData:
		return "receive-data"
	case CloseConnection:
		return "close-connection"
	case PowerDown:
		return "power-down"
	case Stop:
		return "stop"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Handler runs one state's work. A nil return is success; anything else
// routes the run along the state's failure edge.
type Handler func() error

// Rule is one transition table row.
type Rule struct {
	Name      string
	Run       Handler
	OnSuccess State
	OnFailure State
}

// Table maps every non-terminal state to its rule. Built once, never
// mutated afterwards.
type Table map[State]Rule

// DefaultMaxRetries bounds the failures tolerated in one run.
const DefaultMaxRetries = 5

// ErrRetriesExhausted is returned when a run spends its whole retry budget.
// The run is abandoned where it stands; the next wake cycle starts fresh
// with a zeroed budget.
var ErrRetriesExhausted = errors.New("retry budget exhausted")

// Engine drives a transition table from ConnectWifi toward Stop.
type Engine struct {
	table      Table
	maxRetries int
	log        *slog.Logger
}

// NewEngine builds an engine over the given table. A non-positive
// maxRetries selects DefaultMaxRetries.
func NewEngine(table Table, maxRetries int, log *slog.Logger) *Engine {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		table:      table,
		maxRetries: maxRetries,
		log:        log.With("component", "workflow"),
	}
}

// Run executes one report cycle. The budget is checked before every state,
// so a run ends after exactly maxRetries handler failures no matter which
// states they happened in. Failure edges mostly step backward to
// re-establish a precondition; the shared budget is what keeps those
// backward loops finite.
//
// The context is consulted between states only. A state handler that has
// started owns the line until its transaction ends.
func (e *Engine) Run(ctx context.Context) error {
	state := ConnectWifi
	retries := 0

	for state != Stop {
		if err := ctx.Err(); err != nil {
			return err
		}
		if retries == e.maxRetries {
			e.log.Error("abandoning run", "state", state, "retries", retries)
			return fmt.Errorf("workflow: at %s: %w", state, ErrRetriesExhausted)
		}

		rule, ok := e.table[state]
		if !ok {
			return fmt.Errorf("workflow: no rule for state %s", state)
		}

		e.log.Info("entering state", "state", state, "retries", retries)
		if err := rule.Run(); err != nil {
			e.log.Warn("state failed", "state", state, "err", err)
			state = rule.OnFailure
			retries++
			continue
		}
		state = rule.OnSuccess
	}

	e.log.Info("run complete", "retries", retries)
	return nil
}
