package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type testConfig struct {
	Name  string `toml:"name"`
	Value int    `toml:"value"`
}

func loadTestConfig(path string) (testConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return testConfig{}, err
	}
	var cfg testConfig
	err = toml.Unmarshal(data, &cfg)
	return cfg, err
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startWatcher(t *testing.T, content string, opts ...WatcherOption[testConfig]) (*Watcher[testConfig], string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	opts = append([]WatcherOption[testConfig]{WithDebounce[testConfig](50 * time.Millisecond)}, opts...)
	w := NewConfigWatcher(path, loadTestConfig, newTestLogger(), opts...)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	})
	return w, path
}

func TestConfigWatcher_BasicReload(t *testing.T) {
	received := make(chan testConfig, 1)
	w, path := startWatcher(t, "name = \"initial\"\nvalue = 1\n")
	w.OnReload(func(cfg testConfig) { received <- cfg })

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("name = \"updated\"\nvalue = 42\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-received:
		if cfg.Name != "updated" || cfg.Value != 42 {
			t.Errorf("got %+v, want name=updated value=42", cfg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for config reload")
	}
}

func TestConfigWatcher_ReplaceByRename(t *testing.T) {
	received := make(chan testConfig, 4)
	w, path := startWatcher(t, "name = \"initial\"\n")
	w.OnReload(func(cfg testConfig) { received <- cfg })

	time.Sleep(100 * time.Millisecond)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte("name = \"renamed\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-received:
		if cfg.Name != "renamed" {
			t.Errorf("Name = %q, want renamed", cfg.Name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload after rename")
	}
}

func TestConfigWatcher_IgnoresSiblingFiles(t *testing.T) {
	received := make(chan testConfig, 1)
	w, path := startWatcher(t, "name = \"initial\"\n")
	w.OnReload(func(cfg testConfig) { received <- cfg })

	time.Sleep(100 * time.Millisecond)
	other := filepath.Join(filepath.Dir(path), "other.toml")
	if err := os.WriteFile(other, []byte("name = \"other\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-received:
		t.Errorf("unexpected reload %+v", cfg)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestConfigWatcher_Debounce(t *testing.T) {
	received := make(chan testConfig, 10)
	w, path := startWatcher(t, "value = 0\n", WithDebounce[testConfig](200*time.Millisecond))
	w.OnReload(func(cfg testConfig) { received <- cfg })

	time.Sleep(100 * time.Millisecond)
	for i := 1; i <= 5; i++ {
		content := []byte("value = " + string(rune('0'+i)) + "\n")
		if err := os.WriteFile(path, content, 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case cfg := <-received:
		if cfg.Value != 5 {
			t.Errorf("Value = %d, want last write 5", cfg.Value)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for debounced reload")
	}

	select {
	case cfg := <-received:
		t.Errorf("burst produced a second reload %+v", cfg)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestConfigWatcher_Unsubscribe(t *testing.T) {
	w, _ := startWatcher(t, "value = 1\n")

	calls := 0
	unsub := w.OnReload(func(testConfig) { calls++ })
	w.Reload()
	unsub()
	w.Reload()

	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
}

func TestConfigWatcher_ErrorHandler(t *testing.T) {
	errs := make(chan error, 4)
	w, path := startWatcher(t, "value = 1\n", WithErrorHandler[testConfig](func(err error) { errs <- err }))

	reloads := make(chan testConfig, 4)
	w.OnReload(func(cfg testConfig) { reloads <- cfg })

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("value = [broken\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-errs:
	case <-time.After(2 * time.Second):
		t.Fatal("error handler not called for invalid config")
	}
	select {
	case cfg := <-reloads:
		t.Errorf("reload handler ran with invalid config: %+v", cfg)
	default:
	}
}

func TestConfigWatcher_StartMissingDirectory(t *testing.T) {
	w := NewConfigWatcher(filepath.Join(t.TempDir(), "missing", "config.toml"), loadTestConfig, newTestLogger())
	if err := w.Start(); err == nil {
		_ = w.Stop()
		t.Fatal("Start() should fail for a missing directory")
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() after failed Start error = %v", err)
	}
}
