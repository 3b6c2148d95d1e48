package serial

import (
	"fmt"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes a serial port found on the host.
type PortInfo struct {
	Name         string `json:"name"`
	USB          bool   `json:"usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
}

// Label renders the port for listings, e.g. "/dev/ttyUSB0 [0403:6001 FT232R]".
func (p PortInfo) Label() string {
	if !p.USB {
		return p.Name
	}
	label := fmt.Sprintf("%s [%s:%s", p.Name, p.VID, p.PID)
	if p.Product != "" {
		label += " " + p.Product
	}
	if p.SerialNumber != "" {
		label += " sn=" + p.SerialNumber
	}
	return label + "]"
}

// ListPortDetails returns the serial ports with USB identification where
// the platform provides it.
func ListPortDetails() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:         d.Name,
			USB:          d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	return ports, nil
}
