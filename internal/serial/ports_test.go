package serial

import "testing"

func TestPortInfoLabel(t *testing.T) {
	tests := []struct {
		in   PortInfo
		want string
	}{
		{PortInfo{Name: "COM1"}, "COM1"},
		{PortInfo{Name: "/dev/ttyUSB0", USB: true, VID: "0403", PID: "6001"}, "/dev/ttyUSB0 [0403:6001]"},
		{PortInfo{Name: "/dev/ttyACM0", USB: true, VID: "2341", PID: "0043", Product: "pE-300", SerialNumber: "A1"},
			"/dev/ttyACM0 [2341:0043 pE-300 sn=A1]"},
	}
	for _, tt := range tests {
		if got := tt.in.Label(); got != tt.want {
			t.Errorf("Label() = %q, want %q", got, tt.want)
		}
	}
}
