package api

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/coolledctl/internal/api/models"
	"github.com/smazurov/coolledctl/internal/events"
	"github.com/smazurov/coolledctl/internal/metrics"
	"github.com/smazurov/coolledctl/internal/panel"
	"github.com/smazurov/coolledctl/internal/serial"
	"github.com/smazurov/coolledctl/internal/task"
)

// fakeChannel stands in for an open serial port.
type fakeChannel struct {
	mu     sync.Mutex
	writes []string
	open   bool
	err    error
	cfg    serial.Config
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{open: true, cfg: serial.DefaultConfig("/dev/ttyUSB0")}
}

func (f *fakeChannel) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.writes = append(f.writes, string(p))
	return len(p), nil
}

func (f *fakeChannel) Writes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...)
}

func (f *fakeChannel) Config() serial.Config { return f.cfg }

func (f *fakeChannel) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeChannel) State() serial.State {
	if f.IsOpen() {
		return serial.StateOpen
	}
	return serial.StateClosed
}

type testEnv struct {
	server  *Server
	ts      *httptest.Server
	channel *fakeChannel
	panel   *panel.Panel
	bus     *events.Bus
}

func newTestEnv(t *testing.T, opts Options, toggles ...string) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := events.New()
	runner := task.NewRunner(&task.RunnerOptions{
		Workers:  1,
		Logger:   logger,
		OnSignal: task.PublishSignals(bus),
	})
	t.Cleanup(runner.Stop)

	ch := newFakeChannel()
	p, err := panel.New(panel.Options{
		Toggles: toggles,
		Channel: ch,
		Runner:  runner,
		Bus:     bus,
		Logger:  logger,
	})
	if err != nil {
		t.Fatalf("panel.New() error = %v", err)
	}

	opts.Panel = p
	opts.Serial = ch
	opts.EventBus = bus
	server := NewServer(&opts)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{server: server, ts: ts, channel: ch, panel: p, bus: bus}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealthAndVersion(t *testing.T) {
	env := newTestEnv(t, Options{AuthUsername: "admin", AuthPassword: "secret"})

	resp := env.do(t, http.MethodGet, "/api/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d, want 200 without credentials", resp.StatusCode)
	}
	if got := decode[models.HealthData](t, resp); got.Status != "ok" || got.Serial != "open" {
		t.Errorf("health = %+v, want ok with open serial", got)
	}

	resp = env.do(t, http.MethodGet, "/api/version", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("version status = %d", resp.StatusCode)
	}
	if got := decode[models.VersionData](t, resp); got.GoVersion == "" {
		t.Error("version response missing go_version")
	}
}

func TestBasicAuth(t *testing.T) {
	env := newTestEnv(t, Options{AuthUsername: "admin", AuthPassword: "secret"})

	resp := env.do(t, http.MethodGet, "/api/panel", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status without credentials = %d, want 401", resp.StatusCode)
	}
	if resp.Header.Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate header")
	}

	tests := []struct {
		name string
		set  func(*http.Request)
		want int
	}{
		{"header", func(r *http.Request) { r.SetBasicAuth("admin", "secret") }, http.StatusOK},
		{"wrong password", func(r *http.Request) { r.SetBasicAuth("admin", "nope") }, http.StatusUnauthorized},
		{"query", func(r *http.Request) {
			r.URL.RawQuery = "auth=" + base64.StdEncoding.EncodeToString([]byte("admin:secret"))
		}, http.StatusOK},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer x") }, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, env.ts.URL+"/api/panel", nil)
			tt.set(req)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestGetPanel(t *testing.T) {
	env := newTestEnv(t, Options{}, "A", "B")

	resp := env.do(t, http.MethodGet, "/api/panel", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decode[models.PanelData](t, resp)
	if len(got.Toggles) != 2 || got.Toggles[0].Name != "A" || got.Toggles[1].Name != "B" {
		t.Errorf("toggles = %+v", got.Toggles)
	}
	if got.Bits != "00" || got.Command != "CSF" {
		t.Errorf("bits/command = %q/%q, want 00/CSF", got.Bits, got.Command)
	}
	if got.LastCommand != "" {
		t.Errorf("last_command = %q, want empty before any dispatch", got.LastCommand)
	}
	if len(env.channel.Writes()) != 0 {
		t.Error("reading the panel must not write to the device")
	}
}

func TestFlipWritesCommand(t *testing.T) {
	env := newTestEnv(t, Options{})

	resp := env.do(t, http.MethodPost, "/api/panel/toggles/LED%20ON/flip?wait=true", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	got := decode[models.DispatchData](t, resp)
	if got.Command != "CSN" {
		t.Errorf("command = %q, want CSN", got.Command)
	}
	if got.Outcome == nil || got.Outcome.Status != "ok" {
		t.Errorf("outcome = %+v, want ok", got.Outcome)
	}
	if writes := env.channel.Writes(); len(writes) != 1 || writes[0] != "CSN\n" {
		t.Errorf("writes = %q, want [CSN\\n]", writes)
	}

	env.do(t, http.MethodPost, "/api/panel/toggles/LED%20ON/flip?wait=true", nil)
	if writes := env.channel.Writes(); len(writes) != 2 || writes[1] != "CSF\n" {
		t.Errorf("writes = %q, want second write CSF\\n", writes)
	}
}

func TestSetToggle(t *testing.T) {
	env := newTestEnv(t, Options{}, "A", "B")

	resp := env.do(t, http.MethodPut, "/api/panel/toggles/B?wait=true", map[string]bool{"checked": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decode[models.DispatchData](t, resp)
	if got.Panel.Bits != "01" || got.Command != "CSN" {
		t.Errorf("bits/command = %q/%q, want 01/CSN", got.Panel.Bits, got.Command)
	}

	resp = env.do(t, http.MethodPut, "/api/panel/toggles/B?wait=true", map[string]bool{"checked": false})
	got = decode[models.DispatchData](t, resp)
	if got.Command != "CSF" {
		t.Errorf("command = %q, want CSF", got.Command)
	}
	if writes := env.channel.Writes(); len(writes) != 2 || writes[1] != "CSF\n" {
		t.Errorf("writes = %q", writes)
	}
}

func TestDispatchWithoutWait(t *testing.T) {
	env := newTestEnv(t, Options{})

	resp := env.do(t, http.MethodPost, "/api/panel/apply", nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	got := decode[models.DispatchData](t, resp)
	if got.TaskID == 0 {
		t.Error("task_id missing")
	}
	if got.Outcome != nil {
		t.Error("outcome present without wait")
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(env.channel.Writes()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if writes := env.channel.Writes(); len(writes) != 1 || writes[0] != "CSF\n" {
		t.Errorf("writes = %q, want [CSF\\n]", writes)
	}
}

func TestDispatchErrors(t *testing.T) {
	t.Run("unknown toggle", func(t *testing.T) {
		env := newTestEnv(t, Options{})
		resp := env.do(t, http.MethodPost, "/api/panel/toggles/missing/flip", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("channel closed", func(t *testing.T) {
		env := newTestEnv(t, Options{})
		env.channel.mu.Lock()
		env.channel.open = false
		env.channel.mu.Unlock()

		resp := env.do(t, http.MethodPost, "/api/panel/toggles/LED%20ON/flip", nil)
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", resp.StatusCode)
		}
		if checked, _ := env.panel.State().Get("LED ON"); checked {
			t.Error("toggle changed while the channel was closed")
		}
	})

	t.Run("write failure", func(t *testing.T) {
		env := newTestEnv(t, Options{})
		env.channel.mu.Lock()
		env.channel.err = errors.New("input/output error")
		env.channel.mu.Unlock()

		resp := env.do(t, http.MethodPost, "/api/panel/toggles/LED%20ON/flip?wait=true", nil)
		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if !strings.Contains(string(body), "input/output error") {
			t.Errorf("body does not carry the failure: %s", body)
		}
	})
}

func TestSerialRoutes(t *testing.T) {
	env := newTestEnv(t, Options{ListPorts: func() ([]string, error) {
		return []string{"/dev/ttyUSB0", "/dev/ttyACM0"}, nil
	}})

	resp := env.do(t, http.MethodGet, "/api/serial", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decode[models.SerialData](t, resp)
	if got.Port != "/dev/ttyUSB0" || got.BaudRate != 9600 || got.Settings != "/dev/ttyUSB0 9600 8N1" {
		t.Errorf("serial = %+v", got)
	}
	if !got.Open || got.State != "open" {
		t.Errorf("state = %q open = %v", got.State, got.Open)
	}

	resp = env.do(t, http.MethodGet, "/api/serial/ports", nil)
	ports := decode[models.PortsData](t, resp)
	if ports.Count != 2 || ports.Ports[1] != "/dev/ttyACM0" {
		t.Errorf("ports = %+v", ports)
	}
}

func TestListPortsError(t *testing.T) {
	env := newTestEnv(t, Options{ListPorts: func() ([]string, error) {
		return nil, errors.New("no serial ports driver")
	}})

	resp := env.do(t, http.MethodGet, "/api/serial/ports", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestEventsStream(t *testing.T) {
	env := newTestEnv(t, Options{})

	resp, err := http.Get(env.ts.URL + "/api/events")
	if err != nil {
		t.Fatalf("Failed to connect to SSE: %v", err)
	}
	defer resp.Body.Close()

	if !strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("Expected SSE content type, got %s", resp.Header.Get("Content-Type"))
	}

	type sseMessage struct{ event, data string }
	messages := make(chan sseMessage, 32)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		var event string
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				messages <- sseMessage{event, strings.TrimSpace(strings.TrimPrefix(line, "data:"))}
			}
		}
	}()

	next := func() sseMessage {
		t.Helper()
		select {
		case m := <-messages:
			return m
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for SSE message")
			return sseMessage{}
		}
	}

	if m := next(); m.event != "serial-state-changed" || !strings.Contains(m.data, `"state":"open"`) {
		t.Errorf("first message = %+v, want serial state", m)
	}
	if m := next(); m.event != "panel-state-changed" || !strings.Contains(m.data, `"command":"CSF"`) {
		t.Errorf("second message = %+v, want panel snapshot", m)
	}

	if _, err := env.panel.Flip("LED ON"); err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	for len(seen) < 3 {
		m := next()
		switch {
		case m.event == "panel-state-changed":
			if !strings.Contains(m.data, `"command":"CSN"`) {
				t.Errorf("panel event = %s, want CSN", m.data)
			}
			seen["panel"] = true
		case m.event == "task" && strings.Contains(m.data, `"signal":"result"`):
			seen["result"] = true
		case m.event == "task" && strings.Contains(m.data, `"signal":"finished"`):
			seen["finished"] = true
		}
	}
}

func TestMetricsAndPage(t *testing.T) {
	env := newTestEnv(t, Options{
		AuthUsername:      "admin",
		AuthPassword:      "secret",
		PrometheusHandler: metrics.Handler(),
	})

	resp := env.do(t, http.MethodGet, "/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/metrics status = %d, want 200 without credentials", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/", nil)
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "CoolLED pE-300 controller") {
		t.Errorf("/ status = %d, want the panel page", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/nothing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("/api/nothing status = %d, want 404", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, Options{})

	resp := env.do(t, http.MethodOptions, "/api/panel", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS origin header")
	}
}

func TestStopBeforeStart(t *testing.T) {
	env := newTestEnv(t, Options{})

	if err := env.server.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- env.server.Start("127.0.0.1:0") }()

	select {
	case err := <-done:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("Start() after Stop = %v, want http.ErrServerClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() kept serving after Stop")
	}
}

func TestStopEndsStart(t *testing.T) {
	env := newTestEnv(t, Options{})

	done := make(chan error, 1)
	go func() { done <- env.server.Start("127.0.0.1:0") }()

	// Stop may land before or after Serve begins; both must end Start.
	time.Sleep(20 * time.Millisecond)
	if err := env.server.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("Start() = %v, want http.ErrServerClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after Stop")
	}
}
