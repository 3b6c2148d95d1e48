package serial

import (
	"testing"
	"time"

	bugst "go.bug.st/serial"
)

func TestParseParity(t *testing.T) {
	tests := []struct {
		in      string
		want    bugst.Parity
		wantErr bool
	}{
		{"N", bugst.NoParity, false},
		{"none", bugst.NoParity, false},
		{"", bugst.NoParity, false},
		{"E", bugst.EvenParity, false},
		{"odd", bugst.OddParity, false},
		{"m", bugst.MarkParity, false},
		{"Space", bugst.SpaceParity, false},
		{"X", bugst.NoParity, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseParity(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseParity(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseParity(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"zero baud", func(c *Config) { c.BaudRate = 0 }, true},
		{"seven data bits", func(c *Config) { c.DataBits = 7 }, false},
		{"nine data bits", func(c *Config) { c.DataBits = 9 }, true},
		{"bad parity", func(c *Config) { c.Parity = "Q" }, true},
		{"one and a half stop bits", func(c *Config) { c.StopBits = 1.5 }, false},
		{"three stop bits", func(c *Config) { c.StopBits = 3 }, true},
		{"negative timeout", func(c *Config) { c.ReadTimeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("/dev/ttyUSB0")
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigString(t *testing.T) {
	if got := DefaultConfig("COM3").String(); got != "COM3 9600 8N1" {
		t.Errorf("String() = %q, want %q", got, "COM3 9600 8N1")
	}
}

func TestSettingsConfig(t *testing.T) {
	tests := []struct {
		name    string
		in      Settings
		want    string
		timeout time.Duration
		wantErr bool
	}{
		{name: "defaults", in: Settings{Port: "COM3"}, want: "COM3 9600 8N1"},
		{name: "explicit", in: Settings{Port: "/dev/ttyUSB0", BaudRate: 19200, DataBits: 7, Parity: "even", StopBits: "2", ReadTimeout: "250ms"},
			want: "/dev/ttyUSB0 19200 7E2", timeout: 250 * time.Millisecond},
		{name: "one and a half", in: Settings{Port: "COM3", StopBits: "1.5"}, want: "COM3 9600 8N1.5"},
		{name: "bad stop bits", in: Settings{Port: "COM3", StopBits: "two"}, wantErr: true},
		{name: "bad timeout", in: Settings{Port: "COM3", ReadTimeout: "soon"}, wantErr: true},
		{name: "no port", in: Settings{}, wantErr: true},
		{name: "bad parity", in: Settings{Port: "COM3", Parity: "X"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tt.in.Config()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Config() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := cfg.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if cfg.ReadTimeout != tt.timeout {
				t.Errorf("ReadTimeout = %v, want %v", cfg.ReadTimeout, tt.timeout)
			}
		})
	}
}
