// Package epd drives the Waveshare 7.5" tri-color e-paper panel (B, V2) over
// SPI using periph.io. The command sequences follow the vendor reference
// driver; pin wiring is the Raspberry Pi HAT layout.
package epd

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"

	appLog "papercal/internal/log"
)

// Panel geometry.
const (
	Width     = 800
	Height    = 480
	PlaneSize = Width / 8 * Height
)

// Controller commands.
const (
	cmdPanelSetting   = 0x00
	cmdPowerSetting   = 0x01
	cmdPowerOff       = 0x02
	cmdPowerOn        = 0x04
	cmdBoosterSoft    = 0x06
	cmdDeepSleep      = 0x07
	cmdDataBlack      = 0x10
	cmdDisplayRefresh = 0x12
	cmdDataRed        = 0x13
	cmdDualSPI        = 0x15
	cmdVCOMInterval   = 0x50
	cmdTCON           = 0x60
	cmdResolution     = 0x61
	cmdGetStatus      = 0x71

	deepSleepCheck = 0xA5
)

const (
	defaultMaxTx = 4096
	busyTimeout  = 40 * time.Second
)

// ErrBusyTimeout is returned when the panel never reports idle.
var ErrBusyTimeout = errors.New("epd: timed out waiting for panel")

// Driver is the high-level handle used by the rest of the application.
type Driver struct {
	spi  spi.Conn
	dc   gpio.PinOut
	rst  gpio.PinOut
	busy gpio.PinIn

	// closer releases the SPI port, if the driver opened it.
	closer func() error
	// sleep is time.Sleep outside tests.
	sleep func(time.Duration)
	maxTx int
}

// New wraps an already connected SPI conn and the control pins. Chip select
// is left to the SPI port.
func New(c spi.Conn, dc, rst gpio.PinOut, busy gpio.PinIn) *Driver {
	d := &Driver{
		spi:   c,
		dc:    dc,
		rst:   rst,
		busy:  busy,
		sleep: time.Sleep,
		maxTx: defaultMaxTx,
	}
	if l, ok := c.(conn.Limits); ok && l.MaxTxSize() > 0 {
		d.maxTx = l.MaxTxSize()
	}
	return d
}

// Close releases the SPI port opened by Open.
func (d *Driver) Close() error {
	if d.closer != nil {
		return d.closer()
	}
	return nil
}

func (d *Driver) reset() {
	_ = d.rst.Out(gpio.High)
	d.sleep(200 * time.Millisecond)
	_ = d.rst.Out(gpio.Low)
	d.sleep(4 * time.Millisecond)
	_ = d.rst.Out(gpio.High)
	d.sleep(200 * time.Millisecond)
}

func (d *Driver) sendCommand(reg byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.spi.Tx([]byte{reg}, nil); err != nil {
		return fmt.Errorf("epd: command %#x: %w", reg, err)
	}
	return nil
}

func (d *Driver) sendData(data ...byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(data) > 0 {
		n := min(len(data), d.maxTx)
		if err := d.spi.Tx(data[:n], nil); err != nil {
			return fmt.Errorf("epd: data: %w", err)
		}
		data = data[n:]
	}
	return nil
}

func (d *Driver) command(reg byte, data ...byte) error {
	if err := d.sendCommand(reg); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return d.sendData(data...)
}

// waitUntilIdle polls the status register until BUSY goes high.
func (d *Driver) waitUntilIdle() error {
	var waited time.Duration
	const step = 20 * time.Millisecond
	for {
		if err := d.sendCommand(cmdGetStatus); err != nil {
			return err
		}
		if d.busy.Read() == gpio.High {
			break
		}
		if waited >= busyTimeout {
			return ErrBusyTimeout
		}
		d.sleep(step)
		waited += step
	}
	d.sleep(200 * time.Millisecond)
	return nil
}

// Init wakes the panel and loads the register setup.
func (d *Driver) Init() error {
	d.reset()

	steps := []struct {
		reg  byte
		data []byte
	}{
		{cmdPowerSetting, []byte{0x07, 0x07, 0x3F, 0x3F}},
		{cmdBoosterSoft, []byte{0x17, 0x17, 0x28, 0x17}},
		{cmdPowerOn, nil},
	}
	for _, s := range steps {
		if err := d.command(s.reg, s.data...); err != nil {
			return err
		}
	}
	d.sleep(100 * time.Millisecond)
	if err := d.waitUntilIdle(); err != nil {
		return err
	}

	steps = []struct {
		reg  byte
		data []byte
	}{
		{cmdPanelSetting, []byte{0x0F}},
		{cmdResolution, []byte{Width >> 8, Width & 0xFF, Height >> 8, Height & 0xFF}},
		{cmdDualSPI, []byte{0x00}},
		{cmdVCOMInterval, []byte{0x11, 0x07}},
		{cmdTCON, []byte{0x22}},
	}
	for _, s := range steps {
		if err := d.command(s.reg, s.data...); err != nil {
			return err
		}
	}
	return nil
}

// Clear blanks both planes to white.
func (d *Driver) Clear() error {
	white := make([]byte, PlaneSize)
	for i := range white {
		white[i] = 0xFF
	}
	if err := d.command(cmdDataBlack, white...); err != nil {
		return err
	}
	if err := d.command(cmdDataRed, make([]byte, PlaneSize)...); err != nil {
		return err
	}
	return d.turnOnDisplay()
}

// Display sends packed 1bpp planes (bit 0 = ink) and refreshes the panel.
func (d *Driver) Display(black, red []byte) error {
	if len(black) != PlaneSize || len(red) != PlaneSize {
		return fmt.Errorf("epd: expected %d byte planes, got %d/%d", PlaneSize, len(black), len(red))
	}
	if err := d.command(cmdDataBlack, black...); err != nil {
		return err
	}
	inv := make([]byte, PlaneSize)
	for i, b := range red {
		inv[i] = ^b
	}
	if err := d.command(cmdDataRed, inv...); err != nil {
		return err
	}
	return d.turnOnDisplay()
}

func (d *Driver) turnOnDisplay() error {
	if err := d.sendCommand(cmdDisplayRefresh); err != nil {
		return err
	}
	d.sleep(100 * time.Millisecond)
	return d.waitUntilIdle()
}

// Sleep powers the panel off and enters deep sleep. Init must be called
// again before the next Display.
func (d *Driver) Sleep() error {
	if err := d.sendCommand(cmdPowerOff); err != nil {
		return err
	}
	if err := d.waitUntilIdle(); err != nil {
		return err
	}
	return d.command(cmdDeepSleep, deepSleepCheck)
}

// Show runs a full refresh cycle: Init, Display, Sleep.
func (d *Driver) Show(black, red []byte) error {
	start := time.Now()
	if err := d.Init(); err != nil {
		return fmt.Errorf("epd: init: %w", err)
	}
	if err := d.Display(black, red); err != nil {
		return err
	}
	if err := d.Sleep(); err != nil {
		return fmt.Errorf("epd: sleep: %w", err)
	}
	appLog.Info("epd refreshed", "elapsed", time.Since(start).Round(time.Millisecond).String())
	return nil
}
