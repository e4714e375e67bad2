// Package status reports what the sync pipeline is doing.
package status

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

type State string

const (
	Idle    State = "idle"
	Running State = "running"
	Error   State = "error"
)

// Indicator receives state changes. Calls are fire-and-forget.
type Indicator interface {
	SetState(state State, message string)
	SetIdle()
}

// Snapshot is the indicator state at one point in time
type Snapshot struct {
	State     State     `json:"state"`
	Message   string    `json:"message,omitempty"`
	Since     time.Time `json:"since"`
	LastError string    `json:"last_error,omitempty"`
	Syncs     int       `json:"syncs"`
}

// Board keeps the latest state and optionally echoes transitions to a
// terminal.
type Board struct {
	mu   sync.RWMutex
	snap Snapshot
	out  io.Writer
	now  func() time.Time
}

func NewBoard(out io.Writer) *Board {
	b := &Board{out: out, now: time.Now}
	b.snap = Snapshot{State: Idle, Since: b.now()}
	return b
}

func (b *Board) SetState(state State, message string) {
	b.mu.Lock()
	b.snap.State = state
	b.snap.Message = message
	b.snap.Since = b.now()
	switch state {
	case Running:
		b.snap.Syncs++
	case Error:
		b.snap.LastError = message
	}
	snap := b.snap
	b.mu.Unlock()

	b.print(snap)
}

func (b *Board) SetIdle() {
	b.SetState(Idle, "")
}

func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap
}

func (b *Board) print(s Snapshot) {
	if b.out == nil || s.State == Idle {
		return
	}
	fmt.Fprintln(b.out, Render(s))
}

// Render formats a snapshot for a terminal
func Render(s Snapshot) string {
	var c *color.Color
	switch s.State {
	case Running:
		c = color.New(color.FgYellow)
	case Error:
		c = color.New(color.FgRed, color.Bold)
	default:
		c = color.New(color.FgGreen)
	}

	line := c.Sprint(string(s.State))
	if s.Message != "" {
		line += " " + s.Message
	}
	return line
}

// Nop discards state changes
type Nop struct{}

func (Nop) SetState(State, string) {}
func (Nop) SetIdle()               {}
