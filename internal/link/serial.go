package link

import (
	"errors"
	"fmt"
	"io"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Port is an open serial device
type Port interface {
	io.ReadWriteCloser
}

// PortInfo describes an available serial device
type PortInfo struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
}

// Label is the operator-facing "NAME: description" form
func (p PortInfo) Label() string {
	if p.Description == "" {
		return p.Name
	}
	return p.Name + ": " + p.Description
}

// Opener opens serial devices and enumerates them
type Opener interface {
	Open(name string, baud int) (Port, error)
	List() ([]PortInfo, error)
}

// SerialOpener opens real serial devices (8N1)
type SerialOpener struct{}

// Open opens the device at the given baud rate
func (SerialOpener) Open(name string, baud int) (Port, error) {
	p, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, describeOpenError(name, err)
	}
	return p, nil
}

// List returns the serial devices present on this machine
func (SerialOpener) List() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	out := make([]PortInfo, 0, len(details))
	for _, d := range details {
		out = append(out, PortInfo{
			Name:         d.Name,
			Description:  d.Product,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
		})
	}
	return out, nil
}

func describeOpenError(name string, err error) error {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return fmt.Errorf("open %s: %w", name, err)
	}
	switch portErr.Code() {
	case serial.PortNotFound:
		return fmt.Errorf("SERIAL ERROR: Device not found (%s): %w", name, err)
	case serial.PortBusy, serial.PermissionDenied:
		return fmt.Errorf("SERIAL ERROR: Could not open port %s: %w", name, err)
	default:
		return fmt.Errorf("open %s: %w", name, err)
	}
}
