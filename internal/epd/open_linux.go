//go:build linux

package epd

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// BCM pin numbers of the Waveshare e-Paper HAT.
const (
	bcmRST  = 17
	bcmDC   = 25
	bcmBUSY = 24
)

// Open initializes periph.io, opens the default SPI port (/dev/spidev0.0 on a
// Raspberry Pi, hardware chip select) and configures the control pins.
func Open() (*Driver, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("epd: periph host init failed: %w", err)
	}

	port, err := spireg.Open("")
	if err != nil {
		return nil, fmt.Errorf("epd: failed to open SPI port: %w", err)
	}
	c, err := port.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("epd: failed to connect SPI: %w", err)
	}

	pinOut := func(num int, level gpio.Level) (gpio.PinIO, error) {
		name := fmt.Sprintf("GPIO%d", num)
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("epd: gpio %s not found", name)
		}
		if err := p.Out(level); err != nil {
			return nil, fmt.Errorf("epd: gpio %s Out failed: %w", name, err)
		}
		return p, nil
	}

	rst, err := pinOut(bcmRST, gpio.High)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	dc, err := pinOut(bcmDC, gpio.Low)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	busy := gpioreg.ByName(fmt.Sprintf("GPIO%d", bcmBUSY))
	if busy == nil {
		_ = port.Close()
		return nil, fmt.Errorf("epd: gpio GPIO%d not found", bcmBUSY)
	}
	if err := busy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("epd: busy pin: %w", err)
	}

	d := New(c, dc, rst, busy)
	d.closer = port.Close
	return d, nil
}
