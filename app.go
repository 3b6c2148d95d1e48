package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/coolledctl/internal/api"
	"github.com/smazurov/coolledctl/internal/config"
	"github.com/smazurov/coolledctl/internal/events"
	"github.com/smazurov/coolledctl/internal/logging"
	"github.com/smazurov/coolledctl/internal/metrics"
	"github.com/smazurov/coolledctl/internal/panel"
	"github.com/smazurov/coolledctl/internal/serial"
	"github.com/smazurov/coolledctl/internal/systemd"
	"github.com/smazurov/coolledctl/internal/task"
)

// app owns every long-lived component of the service.
type app struct {
	opts     *Options
	logger   *slog.Logger
	bus      *events.Bus
	channel  *serial.Channel
	runner   *task.Runner
	panel    *panel.Panel
	server   *api.Server
	watcher  *config.Watcher[logging.Config]
	notifier *systemd.Notifier

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// newApp wires the components. Nothing touches the device yet; opener
// is used when run opens the port.
func newApp(opts *Options, opener serial.Opener) (*app, error) {
	serialCfg, err := opts.serialConfig()
	if err != nil {
		return nil, fmt.Errorf("serial settings: %w", err)
	}

	bus := events.New()
	logging.SetLogCallback(func(entry logging.LogEntry) {
		bus.Publish(api.LogEntryToEvent(entry))
	})

	notifier := systemd.NewNotifier(logging.GetLogger("main"))

	channel := serial.New(serial.Options{
		Config: serialCfg,
		Opener: opener,
		Logger: logging.GetLogger("serial"),
		OnStateChange: func(cfg serial.Config, state serial.State, err error) {
			ev := events.SerialStateChangedEvent{
				Port:      cfg.Port,
				State:     string(state),
				Timestamp: time.Now().Format(time.RFC3339),
			}
			if err != nil {
				ev.Error = err.Error()
			}
			bus.Publish(ev)
			notifier.Status(fmt.Sprintf("%s %s", cfg.Port, state))
		},
	})

	publish := task.PublishSignals(bus)
	runner := task.NewRunner(&task.RunnerOptions{
		Workers: opts.TasksWorkers,
		Logger:  logging.GetLogger("task"),
		OnSignal: func(h *task.Handle, sig task.Signal, o task.Outcome) {
			publish(h, sig, o)
			metrics.RecordTaskSignal(h.Name(), string(sig))
		},
		OnQueueChange: metrics.SetQueueDepth,
	})

	p, err := panel.New(panel.Options{
		Toggles: splitToggles(opts.PanelToggles),
		Channel: channel,
		Runner:  runner,
		Bus:     bus,
		Logger:  logging.GetLogger("panel"),
		OnDispatch: func(cmd panel.Command, h *task.Handle) {
			h.OnResult(func(v any) {
				if res, ok := v.(panel.WriteResult); ok && res.Superseded {
					return
				}
				metrics.RecordCommand(cmd.Name())
			})
			h.OnError(func(task.Failure) { metrics.RecordWriteFailure() })
		},
	})
	if err != nil {
		runner.Stop()
		return nil, fmt.Errorf("panel: %w", err)
	}

	apiOpts := &api.Options{
		AuthUsername: opts.AuthUsername,
		AuthPassword: opts.AuthPassword,
		Panel:        p,
		Serial:       channel,
		ListPorts:    serial.ListPorts,
		EventBus:     bus,
	}
	if opts.MetricsEnabled {
		apiOpts.PrometheusHandler = metrics.Handler()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &app{
		opts:     opts,
		logger:   logging.GetLogger("main"),
		bus:      bus,
		channel:  channel,
		runner:   runner,
		panel:    p,
		server:   api.NewServer(apiOpts),
		notifier: notifier,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// run opens the port and serves HTTP until shutdown. A port that cannot
// be opened is fatal; nothing is served.
func (a *app) run() error {
	if err := a.channel.Open(); err != nil {
		return err
	}

	if a.opts.Config != "" {
		a.watcher = config.NewConfigWatcher(a.opts.Config, config.LoadLoggingConfig, logging.GetLogger("config"),
			config.WithErrorHandler[logging.Config](func(err error) {
				a.logger.Warn("Keeping previous log levels", "error", err)
			}))
		a.watcher.OnReload(func(cfg logging.Config) {
			logging.SetLevels(cfg.Level, cfg.Modules)
			a.logger.Info("Log levels reloaded", "level", cfg.Level)
		})
		if err := a.watcher.Start(); err != nil {
			a.logger.Warn("Config watcher not started", "path", a.opts.Config, "error", err)
			a.watcher = nil
		}
	}

	go a.notifier.RunWatchdog(a.ctx)
	a.notifier.Ready()

	a.logger.Info("Starting HTTP server", "port", a.opts.Port, "toggles", a.panel.Names())
	if err := a.server.Start(a.opts.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// shutdown stops serving, drains queued writes and closes the port.
// Every exit path calls it; only the first call does anything.
func (a *app) shutdown() {
	a.stopOnce.Do(func() {
		a.notifier.Stopping()
		a.cancel()

		if a.watcher != nil {
			if err := a.watcher.Stop(); err != nil {
				a.logger.Warn("Error stopping config watcher", "error", err)
			}
		}
		if err := a.server.Stop(); err != nil {
			a.logger.Error("Error stopping HTTP server", "error", err)
		}
		a.runner.Stop()
		if err := a.channel.Close(); err != nil {
			a.logger.Error("Error closing serial port", "error", err)
		}
		logging.SetLogCallback(nil)
	})
}

// splitToggles parses the comma-separated toggle list.
func splitToggles(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}
