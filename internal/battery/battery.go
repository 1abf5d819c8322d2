package battery

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Status is the battery state shown in the footer and /api/battery.
type Status struct {
	// Known is false when no gauge is configured or it could not be read.
	Known bool `json:"known"`
	// Percent is the battery level in 0–100%.
	Percent int `json:"percent"`
	// VoltageMv is the battery voltage in millivolts.
	VoltageMv int `json:"voltage_mv"`
}

// Volts formats the voltage as "V.VVV".
func (s Status) Volts() string {
	return fmt.Sprintf("%d.%03d", s.VoltageMv/1000, s.VoltageMv%1000)
}

// ErrUnavailable is returned by readers that have no gauge to talk to.
var ErrUnavailable = errors.New("battery: no gauge available")

// Reader abstracts how battery information is obtained.
type Reader interface {
	Read(ctx context.Context) (Status, error)
}

// Gauge kinds accepted by Open.
const (
	KindPiSugar3 = "pisugar3"
	KindNone     = "none"
)

// Open returns the Reader for kind. Unknown kinds fall back to none.
func Open(kind string) Reader {
	switch kind {
	case KindPiSugar3:
		return NewI2CReader("", DefaultAddr)
	default:
		return noneReader{}
	}
}

type noneReader struct{}

func (noneReader) Read(context.Context) (Status, error) {
	return Status{}, ErrUnavailable
}

// PiSugar3 registers.
const (
	DefaultAddr = 0x57

	regVoltageHigh = 0x22
	regVoltageLow  = 0x23
	regPercent     = 0x2A
)

// i2cReader talks to a PiSugar3 controller over I2C:
//   - 0x22 (high), 0x23 (low): battery voltage in millivolts
//   - 0x2A: battery percentage (0–100)
type i2cReader struct {
	addr uint16
	open func() (i2c.BusCloser, error)
}

// NewI2CReader constructs an I2C-backed Reader. busName "" selects the
// default bus (/dev/i2c-1 on a Raspberry Pi). The bus is opened on each Read.
func NewI2CReader(busName string, addr uint16) Reader {
	return &i2cReader{
		addr: addr,
		open: func() (i2c.BusCloser, error) {
			if runtime.GOOS != "linux" {
				return nil, ErrUnavailable
			}
			if _, err := host.Init(); err != nil {
				return nil, err
			}
			return i2creg.Open(busName)
		},
	}
}

func (r *i2cReader) Read(_ context.Context) (Status, error) {
	bus, err := r.open()
	if err != nil {
		return Status{}, fmt.Errorf("battery: open bus: %w", err)
	}
	defer bus.Close()

	dev := &i2c.Dev{Bus: bus, Addr: r.addr}
	readReg := func(reg byte) (byte, error) {
		buf := []byte{0}
		if err := dev.Tx([]byte{reg}, buf); err != nil {
			return 0, fmt.Errorf("battery: read register %#x: %w", reg, err)
		}
		return buf[0], nil
	}

	high, err := readReg(regVoltageHigh)
	if err != nil {
		return Status{}, err
	}
	low, err := readReg(regVoltageLow)
	if err != nil {
		return Status{}, err
	}
	pct, err := readReg(regPercent)
	if err != nil {
		return Status{}, err
	}
	return decode(high, low, pct), nil
}

func decode(high, low, pct byte) Status {
	if pct > 100 {
		pct = 100
	}
	return Status{
		Known:     true,
		Percent:   int(pct),
		VoltageMv: int(uint16(high)<<8 | uint16(low)),
	}
}
