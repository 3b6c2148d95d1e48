// Package panel holds the toggle controls of the illuminator and turns
// their state into serial commands.
package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/coolledctl/internal/events"
	"github.com/smazurov/coolledctl/internal/task"
)

// DefaultToggles is the single-button layout of the pE-300 panel.
var DefaultToggles = []string{"LED ON"}

// ErrUnknownToggle is returned for a toggle name the panel does not have.
var ErrUnknownToggle = errors.New("unknown toggle")

// Writer is the serial channel as seen by the panel.
type Writer interface {
	Write(p []byte) (int, error)
}

// Submitter runs blocking work off the caller's goroutine.
type Submitter interface {
	Submit(name string, fn task.Func) *task.Handle
}

// Publisher receives panel events.
type Publisher interface {
	Publish(ev events.Event)
}

// WriteResult is the value of a successful command write task. A
// superseded write was skipped because a later dispatch already reached
// the device.
type WriteResult struct {
	Command    string `json:"command"`
	Bytes      int    `json:"bytes"`
	Superseded bool   `json:"superseded,omitempty"`
}

// Options configures a Panel.
type Options struct {
	Toggles []string
	Channel Writer
	Runner  Submitter
	Bus     Publisher
	Logger  *slog.Logger

	// OnDispatch is called for every submitted command write.
	OnDispatch func(cmd Command, h *task.Handle)
}

// Panel is the control window: an ordered set of toggles whose combined
// state is written to the device whenever one of them changes.
type Panel struct {
	channel    Writer
	runner     Submitter
	bus        Publisher
	logger     *slog.Logger
	onDispatch func(Command, *task.Handle)

	mu      sync.Mutex
	names   []string
	checked map[string]bool
	last    Command
	hasLast bool
	seq     uint64

	// writeMu orders command writes; written is the newest dispatch that
	// has claimed the wire.
	writeMu sync.Mutex
	written uint64
}

// New creates a panel with every toggle reset to off. Nothing is written
// to the device.
func New(opts Options) (*Panel, error) {
	if opts.Channel == nil {
		return nil, errors.New("panel requires a serial channel")
	}
	if opts.Runner == nil {
		return nil, errors.New("panel requires a task runner")
	}

	names := opts.Toggles
	if len(names) == 0 {
		names = DefaultToggles
	}

	checked := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" {
			return nil, errors.New("toggle name must not be empty")
		}
		if _, dup := checked[name]; dup {
			return nil, fmt.Errorf("duplicate toggle %q", name)
		}
		checked[name] = false
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Panel{
		channel:    opts.Channel,
		runner:     opts.Runner,
		bus:        opts.Bus,
		logger:     logger,
		onDispatch: opts.OnDispatch,
		names:      append([]string(nil), names...),
		checked:    checked,
	}
	p.Reset()
	return p, nil
}

// Names returns the toggle labels in panel order.
func (p *Panel) Names() []string {
	return append([]string(nil), p.names...)
}

// State returns a snapshot of all toggles.
func (p *Panel) State() ToggleState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

// Command returns the command the current state maps to.
func (p *Panel) Command() Command {
	return CommandFor(p.State())
}

// LastCommand returns the most recently dispatched command.
func (p *Panel) LastCommand() (Command, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.hasLast
}

// Reset turns every toggle off without sending anything.
func (p *Panel) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for name := range p.checked {
		p.checked[name] = false
	}
}

// SetToggle sets one toggle and dispatches the resulting command.
func (p *Panel) SetToggle(name string, checked bool) (*task.Handle, error) {
	return p.change(name, func(bool) bool { return checked })
}

// Flip inverts one toggle, like a click on a checkable button, and
// dispatches the resulting command.
func (p *Panel) Flip(name string) (*task.Handle, error) {
	return p.change(name, func(cur bool) bool { return !cur })
}

func (p *Panel) change(name string, next func(bool) bool) (*task.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cur, ok := p.checked[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownToggle, name)
	}
	p.checked[name] = next(cur)
	p.logger.Debug("Toggle changed", "toggle", name, "checked", p.checked[name])
	return p.dispatch(), nil
}

// ApplyState writes the command for the current toggle state.
func (p *Panel) ApplyState() *task.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dispatch()
}

// dispatch snapshots the toggles and submits the command write (must
// hold lock). Writes may run on any worker, so an older dispatch that
// reaches the wire after a newer one is skipped: the device always ends
// up on the command of the latest dispatch.
func (p *Panel) dispatch() *task.Handle {
	state := p.snapshot()
	cmd := CommandFor(state)
	p.seq++
	seq := p.seq

	if cmd == CommandOn {
		p.logger.Info("LED on", "bits", state.Bits())
	} else {
		p.logger.Info("LED off", "bits", state.Bits())
	}

	h := p.runner.Submit("write-command", func(_ context.Context, _ task.Reporter) (any, error) {
		res, err := p.write(seq, cmd)
		if err != nil {
			return nil, err
		}
		return res, nil
	})
	h.OnError(func(f task.Failure) {
		p.logger.Error("Command write failed", "command", cmd.Name(), "kind", f.Kind, "error", f.Message)
	})

	p.last = cmd
	p.hasLast = true

	if p.onDispatch != nil {
		p.onDispatch(cmd, h)
	}
	if p.bus != nil {
		p.bus.Publish(events.PanelStateChangedEvent{
			Toggles:   toEventToggles(state),
			Bits:      state.Bits(),
			Command:   cmd.Name(),
			TaskID:    h.ID(),
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
	return h
}

// write sends cmd unless a newer dispatch already claimed the wire.
func (p *Panel) write(seq uint64, cmd Command) (WriteResult, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if seq < p.written {
		p.logger.Debug("Skipping superseded command", "command", cmd.Name(), "dispatch", seq, "latest", p.written)
		return WriteResult{Command: cmd.Name(), Superseded: true}, nil
	}
	p.written = seq

	n, err := p.channel.Write(cmd.Bytes())
	if err != nil {
		return WriteResult{}, fmt.Errorf("send %s: %w", cmd.Name(), err)
	}
	return WriteResult{Command: cmd.Name(), Bytes: n}, nil
}

// snapshot copies toggle state in panel order (must hold lock).
func (p *Panel) snapshot() ToggleState {
	state := make(ToggleState, 0, len(p.names))
	for _, name := range p.names {
		state = append(state, Toggle{Name: name, Checked: p.checked[name]})
	}
	return state
}

func toEventToggles(s ToggleState) []events.Toggle {
	out := make([]events.Toggle, len(s))
	for i, t := range s {
		out[i] = events.Toggle{Name: t.Name, Checked: t.Checked}
	}
	return out
}
