package serial

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	bugst "go.bug.st/serial"
)

// Default line settings for the CoolLED pE-300.
const (
	DefaultBaudRate    = 9600
	DefaultDataBits    = 8
	DefaultParity      = "N"
	DefaultStopBits    = 1.0
	DefaultReadTimeout = 0 * time.Second
)

// Config describes a serial line.
type Config struct {
	Port        string        `json:"port" toml:"port"`
	BaudRate    int           `json:"baud_rate" toml:"baud_rate"`
	DataBits    int           `json:"data_bits" toml:"data_bits"`
	Parity      string        `json:"parity" toml:"parity"`
	StopBits    float64       `json:"stop_bits" toml:"stop_bits"`
	ReadTimeout time.Duration `json:"read_timeout" toml:"read_timeout"`
}

// DefaultConfig returns 9600 8N1 with a non-blocking read timeout for the given port.
func DefaultConfig(port string) Config {
	return Config{
		Port:        port,
		BaudRate:    DefaultBaudRate,
		DataBits:    DefaultDataBits,
		Parity:      DefaultParity,
		StopBits:    DefaultStopBits,
		ReadTimeout: DefaultReadTimeout,
	}
}

// Validate checks that the configuration can be turned into a driver mode.
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("serial port name is required")
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.BaudRate)
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return fmt.Errorf("invalid data bits %d (want 5-8)", c.DataBits)
	}
	if _, err := ParseParity(c.Parity); err != nil {
		return err
	}
	if _, err := parseStopBits(c.StopBits); err != nil {
		return err
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("invalid read timeout %s", c.ReadTimeout)
	}
	return nil
}

// Mode converts the configuration into a go.bug.st/serial mode.
func (c Config) Mode() (*bugst.Mode, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	parity, _ := ParseParity(c.Parity)
	stopBits, _ := parseStopBits(c.StopBits)
	return &bugst.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
		Parity:   parity,
		StopBits: stopBits,
	}, nil
}

// String renders the line settings the usual way, e.g. "/dev/ttyUSB0 9600 8N1".
func (c Config) String() string {
	parity := "N"
	if p := strings.TrimSpace(c.Parity); p != "" {
		parity = strings.ToUpper(p[:1])
	}
	return fmt.Sprintf("%s %d %d%s%g", c.Port, c.BaudRate, c.DataBits, parity, c.StopBits)
}

// ParseParity accepts single-letter (N, E, O, M, S) or word spellings.
func ParseParity(s string) (bugst.Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "n", "none", "":
		return bugst.NoParity, nil
	case "e", "even":
		return bugst.EvenParity, nil
	case "o", "odd":
		return bugst.OddParity, nil
	case "m", "mark":
		return bugst.MarkParity, nil
	case "s", "space":
		return bugst.SpaceParity, nil
	default:
		return bugst.NoParity, fmt.Errorf("unknown parity %q", s)
	}
}

func parseStopBits(v float64) (bugst.StopBits, error) {
	switch v {
	case 1:
		return bugst.OneStopBit, nil
	case 1.5:
		return bugst.OnePointFiveStopBits, nil
	case 2:
		return bugst.TwoStopBits, nil
	default:
		return bugst.OneStopBit, fmt.Errorf("invalid stop bits %g (want 1, 1.5 or 2)", v)
	}
}

// Settings is the textual form of a Config as it arrives from flags,
// environment and the config file.
type Settings struct {
	Port        string
	BaudRate    int
	DataBits    int
	Parity      string
	StopBits    string
	ReadTimeout string
}

// Config parses the settings into a validated Config. Empty fields take
// the pE-300 defaults.
func (s Settings) Config() (Config, error) {
	cfg := DefaultConfig(s.Port)
	if s.BaudRate != 0 {
		cfg.BaudRate = s.BaudRate
	}
	if s.DataBits != 0 {
		cfg.DataBits = s.DataBits
	}
	if s.Parity != "" {
		cfg.Parity = s.Parity
	}
	if s.StopBits != "" {
		v, err := strconv.ParseFloat(strings.TrimSpace(s.StopBits), 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid stop bits %q: %w", s.StopBits, err)
		}
		cfg.StopBits = v
	}
	if s.ReadTimeout != "" {
		d, err := time.ParseDuration(s.ReadTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("invalid read timeout %q: %w", s.ReadTimeout, err)
		}
		cfg.ReadTimeout = d
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
