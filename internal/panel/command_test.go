package panel

import (
	"fmt"
	"testing"
)

func TestCommandForSingleToggle(t *testing.T) {
	tests := []struct {
		checked bool
		want    Command
	}{
		{false, CommandOff},
		{true, CommandOn},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.checked), func(t *testing.T) {
			state := ToggleState{{Name: "LED ON", Checked: tt.checked}}
			if got := CommandFor(state); got != tt.want {
				t.Errorf("CommandFor(%v) = %q, want %q", tt.checked, got, tt.want)
			}
		})
	}
}

func TestCommandForIsOrReduction(t *testing.T) {
	// Every combination of four toggles: on iff any toggle is on.
	const n = 4
	for mask := 0; mask < 1<<n; mask++ {
		state := make(ToggleState, n)
		for i := 0; i < n; i++ {
			state[i] = Toggle{Name: fmt.Sprintf("T%d", i), Checked: mask&(1<<i) != 0}
		}

		want := CommandOff
		if mask != 0 {
			want = CommandOn
		}
		if got := CommandFor(state); got != want {
			t.Errorf("mask %04b: CommandFor = %q, want %q", mask, got, want)
		}
	}
}

func TestCommandForManyToggles(t *testing.T) {
	// Wider than a machine word; only the last toggle is on.
	state := make(ToggleState, 100)
	for i := range state {
		state[i] = Toggle{Name: fmt.Sprintf("T%d", i)}
	}
	if got := CommandFor(state); got != CommandOff {
		t.Errorf("all off: CommandFor = %q, want %q", got, CommandOff)
	}

	state[99].Checked = true
	if got := CommandFor(state); got != CommandOn {
		t.Errorf("last on: CommandFor = %q, want %q", got, CommandOn)
	}
}

func TestCommandForEmpty(t *testing.T) {
	if got := CommandFor(nil); got != CommandOff {
		t.Errorf("CommandFor(nil) = %q, want %q", got, CommandOff)
	}
}

func TestToggleStateBits(t *testing.T) {
	state := ToggleState{
		{Name: "a", Checked: true},
		{Name: "b", Checked: false},
		{Name: "c", Checked: true},
	}
	if got := state.Bits(); got != "101" {
		t.Errorf("Bits() = %q, want 101", got)
	}
	if checked, ok := state.Get("c"); !ok || !checked {
		t.Errorf("Get(c) = %v, %v", checked, ok)
	}
	if _, ok := state.Get("missing"); ok {
		t.Error("Get(missing) should report not found")
	}
}

func TestCommandWireFormat(t *testing.T) {
	if string(CommandOn.Bytes()) != "CSN\n" {
		t.Errorf("on command = %q", CommandOn.Bytes())
	}
	if string(CommandOff.Bytes()) != "CSF\n" {
		t.Errorf("off command = %q", CommandOff.Bytes())
	}
	if CommandOn.Name() != "CSN" || CommandOff.Name() != "CSF" {
		t.Errorf("names = %q, %q", CommandOn.Name(), CommandOff.Name())
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
		ok   bool
	}{
		{"on", CommandOn, true},
		{"OFF", CommandOff, true},
		{"csn", CommandOn, true},
		{" CSF ", CommandOff, true},
		{"blink", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseCommand(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseCommand(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
