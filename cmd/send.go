package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/smazurov/coolledctl/internal/logging"
	"github.com/smazurov/coolledctl/internal/panel"
	"github.com/smazurov/coolledctl/internal/serial"
	"github.com/smazurov/coolledctl/internal/task"
	"github.com/spf13/cobra"
)

// SerialSettings resolves the serial line configuration from the parsed
// options of the root command.
type SerialSettings func() (serial.Config, error)

// CreateSendCmd creates the send command.
func CreateSendCmd(settings SerialSettings) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:       "send on|off",
		Short:     "Write one command to the light source and exit",
		Long:      `Opens the configured serial port, writes CSN (on) or CSF (off) and closes the port. The HTTP server is not started.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(c *cobra.Command, args []string) error {
			command, ok := panel.ParseCommand(args[0])
			if !ok {
				return fmt.Errorf("unknown command %q (want on or off)", args[0])
			}
			cfg, err := settings()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(c.Context(), timeout)
			defer cancel()
			return Send(ctx, SendOptions{
				Config:  cfg,
				Command: command,
				Logger:  logging.GetLogger("serial"),
				Out:     c.OutOrStdout(),
			})
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Give up if the write has not finished after this long, even if the port is stuck")
	return cmd
}

// SendOptions configures a one-shot command write.
type SendOptions struct {
	Config  serial.Config
	Command panel.Command
	Opener  serial.Opener
	Logger  *slog.Logger
	Out     io.Writer
}

// Send opens the port, writes one command on a background worker, and
// closes the port. If ctx ends while the write is still inside the
// driver, Send returns at once and the port is released in the
// background.
func Send(ctx context.Context, opts SendOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ch := serial.New(serial.Options{Config: opts.Config, Opener: opts.Opener, Logger: logger})
	if err := ch.Open(); err != nil {
		return err
	}

	runner := task.NewRunner(&task.RunnerOptions{Workers: 1, Logger: logger})
	release := func() {
		runner.Stop()
		if err := ch.Close(); err != nil {
			logger.Warn("Failed to close serial port", "error", err)
		}
	}

	h := runner.Submit("write-command", func(_ context.Context, _ task.Reporter) (any, error) {
		n, err := ch.Write(opts.Command.Bytes())
		if err != nil {
			return nil, err
		}
		return n, nil
	})
	outcome, err := h.Wait(ctx)
	if err != nil {
		// Stop and Close both wait for the stuck write.
		go release()
		return fmt.Errorf("send %s: %w", opts.Command.Name(), err)
	}
	release()

	if !outcome.OK() {
		return fmt.Errorf("send %s: %w", opts.Command.Name(), outcome.Err())
	}

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "%s sent to %s\n", opts.Command.Name(), opts.Config)
	}
	return nil
}
