package main

import (
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/coolledctl/cmd"
	"github.com/smazurov/coolledctl/internal/config"
	"github.com/smazurov/coolledctl/internal/logging"
	"github.com/smazurov/coolledctl/internal/serial"
	"github.com/smazurov/coolledctl/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Address to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Serial settings
	SerialPort        string `help:"Serial port of the light source" default:"/dev/ttyUSB0" toml:"serial.port" env:"SERIAL_PORT"`
	SerialBaudRate    int    `help:"Baud rate" default:"9600" toml:"serial.baud_rate" env:"SERIAL_BAUD_RATE"`
	SerialDataBits    int    `help:"Data bits (5-8)" default:"8" toml:"serial.data_bits" env:"SERIAL_DATA_BITS"`
	SerialParity      string `help:"Parity (N, E, O, M, S)" default:"N" toml:"serial.parity" env:"SERIAL_PARITY"`
	SerialStopBits    string `help:"Stop bits (1, 1.5, 2)" default:"1" toml:"serial.stop_bits" env:"SERIAL_STOP_BITS"`
	SerialReadTimeout string `help:"Read timeout" default:"0s" toml:"serial.read_timeout" env:"SERIAL_READ_TIMEOUT"`

	// Panel settings
	PanelToggles string `help:"Comma-separated toggle labels" default:"LED ON" toml:"panel.toggles" env:"PANEL_TOGGLES"`

	// Task settings
	TasksWorkers int `help:"Background workers (0 = one per CPU)" default:"0" toml:"tasks.workers" env:"TASKS_WORKERS"`

	// Auth settings, disabled while either is empty
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Metrics settings
	MetricsEnabled bool `help:"Serve Prometheus metrics on /metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Logging settings
	LoggingLevel  string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSerial string `help:"Serial logging level" default:"info" toml:"logging.serial" env:"LOGGING_SERIAL"`
	LoggingTask   string `help:"Task runner logging level" default:"info" toml:"logging.task" env:"LOGGING_TASK"`
	LoggingPanel  string `help:"Panel logging level" default:"info" toml:"logging.panel" env:"LOGGING_PANEL"`
	LoggingAPI    string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP   string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingConfig string `help:"Config watcher logging level" default:"info" toml:"logging.config" env:"LOGGING_CONFIG"`
}

// loggingConfig builds the logging configuration from the options.
func (o *Options) loggingConfig() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"serial": o.LoggingSerial,
			"task":   o.LoggingTask,
			"panel":  o.LoggingPanel,
			"api":    o.LoggingAPI,
			"http":   o.LoggingHTTP,
			"config": o.LoggingConfig,
		},
	}
}

// serialConfig parses the serial options.
func (o *Options) serialConfig() (serial.Config, error) {
	return serial.Settings{
		Port:        o.SerialPort,
		BaudRate:    o.SerialBaudRate,
		DataBits:    o.SerialDataBits,
		Parity:      o.SerialParity,
		StopBits:    o.SerialStopBits,
		ReadTimeout: o.SerialReadTimeout,
	}.Config()
}

func main() {
	var cli humacli.CLI
	var parsed *Options
	var running atomic.Pointer[app]

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		parsed = opts

		// CLI flags win over env and file
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(opts.loggingConfig())
		logger := logging.GetLogger("main")

		hooks.OnStart(func() {
			a, err := newApp(opts, serial.DriverOpener)
			if err != nil {
				logger.Error("Invalid configuration", "error", err)
				os.Exit(1)
			}
			running.Store(a)
			defer a.shutdown()

			if runErr := a.run(); runErr != nil {
				logger.Error("Service failed", "error", runErr)
				a.shutdown()
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			if a := running.Load(); a != nil {
				logger.Info("Shutting down")
				a.shutdown()
			}
		})
	})

	root := cli.Root()
	root.Use = version.Name
	root.Version = version.String()

	root.AddCommand(cmd.CreateSendCmd(func() (serial.Config, error) {
		return parsed.serialConfig()
	}))
	root.AddCommand(cmd.CreatePortsCmd(serial.ListPortDetails))

	cli.Run()
}
