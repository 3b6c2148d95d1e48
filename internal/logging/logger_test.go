package logging

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func resetLogging() {
	mutex.Lock()
	defer mutex.Unlock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	logBuffer = nil
	logCallback = nil
}

func TestModuleLevelOverride(t *testing.T) {
	resetLogging()

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"serial": "debug",
			"http":   "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"serial", true, true, true},
		{"http", false, false, true},
		{"panel", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()
			ctx := context.Background()

			if got := handler.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("Debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := handler.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("Info enabled = %v, want %v", got, tt.wantInfo)
			}
			if got := handler.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("Warn enabled = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestLoggerCreatedBeforeInitialize(t *testing.T) {
	resetLogging()

	early := GetLogger("task")
	if early.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("uninitialized logger should default to info")
	}

	Initialize(Config{Level: "info", Modules: map[string]string{"task": "debug"}})

	if !GetLogger("task").Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Initialize should apply module level to existing loggers")
	}
}

func TestSetLevels(t *testing.T) {
	resetLogging()
	Initialize(Config{Level: "info"})

	logger := GetLogger("config")
	if logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug should be disabled at info level")
	}

	SetLevels("warn", map[string]string{"config": "debug"})

	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("SetLevels should raise config module to debug")
	}
	if GetLogger("other").Handler().Enabled(context.Background(), slog.LevelInfo) {
		t.Error("new modules should inherit the warn global level")
	}
}

func TestBufferAndCallback(t *testing.T) {
	resetLogging()
	Initialize(Config{Level: "debug"})

	got := make(chan LogEntry, 4)
	SetLogCallback(func(e LogEntry) { got <- e })
	defer SetLogCallback(nil)

	GetLogger("serial").Info("Port open", "port", "/dev/ttyUSB0", "error", errors.New("none"))

	select {
	case e := <-got:
		if e.Module != "serial" {
			t.Errorf("Module = %q, want serial", e.Module)
		}
		if e.Message != "Port open" {
			t.Errorf("Message = %q", e.Message)
		}
		if e.Attributes["port"] != "/dev/ttyUSB0" {
			t.Errorf("port attribute = %v", e.Attributes["port"])
		}
		if e.Attributes["error"] != "none" {
			t.Errorf("error attribute = %v", e.Attributes["error"])
		}
		if e.Seq == 0 {
			t.Error("Seq should be assigned")
		}
	case <-time.After(time.Second):
		t.Fatal("callback not invoked")
	}

	if GetBuffer().Count() == 0 {
		t.Error("buffer should hold the entry")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want *slog.Level
	}{
		{"debug", levelPtr(slog.LevelDebug)},
		{"INFO", levelPtr(slog.LevelInfo)},
		{"warning", levelPtr(slog.LevelWarn)},
		{"error", levelPtr(slog.LevelError)},
		{"loud", nil},
	}
	for _, tt := range tests {
		got := parseLevel(tt.in)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("parseLevel(%q) = %v, want nil", tt.in, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, *tt.want)
		}
	}
}

func levelPtr(l slog.Level) *slog.Level { return &l }
