package epd

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"
)

// frameConn records each transfer together with the DC level at the time.
type frameConn struct {
	dc     *gpiotest.Pin
	frames []frame
	maxTx  int
}

type frame struct {
	cmd  bool
	data []byte
}

func (f *frameConn) String() string               { return "frames" }
func (f *frameConn) Duplex() conn.Duplex          { return conn.Half }
func (f *frameConn) TxPackets([]spi.Packet) error { return errors.New("unsupported") }
func (f *frameConn) MaxTxSize() int               { return f.maxTx }

func (f *frameConn) Tx(w, r []byte) error {
	f.frames = append(f.frames, frame{cmd: f.dc.Read() == gpio.Low, data: bytes.Clone(w)})
	return nil
}

// commands folds frames into command -> concatenated payload pairs.
func (f *frameConn) commands() []frame {
	var out []frame
	for _, fr := range f.frames {
		if fr.cmd {
			out = append(out, frame{cmd: true, data: fr.data})
			continue
		}
		last := &out[len(out)-1]
		last.data = append(bytes.Clone(last.data), fr.data...)
	}
	return out
}

func newTestDriver(maxTx int) (*Driver, *frameConn, *gpiotest.Pin) {
	dc := &gpiotest.Pin{N: "DC"}
	rst := &gpiotest.Pin{N: "RST"}
	busy := &gpiotest.Pin{N: "BUSY", L: gpio.High}
	fc := &frameConn{dc: dc, maxTx: maxTx}
	d := New(fc, dc, rst, busy)
	d.sleep = func(time.Duration) {}
	return d, fc, busy
}

func opcodes(frames []frame) []byte {
	var out []byte
	for _, f := range frames {
		out = append(out, f.data[0])
	}
	return out
}

func TestInitSequence(t *testing.T) {
	d, fc, _ := newTestDriver(0)
	require.NoError(t, d.Init())

	cmds := fc.commands()
	assert.Equal(t, []byte{
		cmdPowerSetting, cmdBoosterSoft, cmdPowerOn, cmdGetStatus,
		cmdPanelSetting, cmdResolution, cmdDualSPI, cmdVCOMInterval, cmdTCON,
	}, opcodes(cmds))

	// Resolution payload follows the command byte.
	assert.Equal(t, []byte{cmdResolution, 0x03, 0x20, 0x01, 0xE0}, cmds[5].data)
	assert.Equal(t, 4096, d.maxTx, "zero MaxTxSize keeps the default")
}

func TestDisplayInvertsRedPlane(t *testing.T) {
	d, fc, _ := newTestDriver(1000)
	black := bytes.Repeat([]byte{0xAA}, PlaneSize)
	red := bytes.Repeat([]byte{0xFF}, PlaneSize)
	red[0] = 0x7F

	require.NoError(t, d.Display(black, red))

	cmds := fc.commands()
	assert.Equal(t, []byte{cmdDataBlack, cmdDataRed, cmdDisplayRefresh, cmdGetStatus}, opcodes(cmds))
	assert.Equal(t, black, cmds[0].data[1:])
	assert.Equal(t, byte(0x80), cmds[1].data[1])
	assert.Equal(t, byte(0x00), cmds[1].data[PlaneSize])

	for _, f := range fc.frames {
		assert.LessOrEqual(t, len(f.data), 1000)
	}
}

func TestDisplayRejectsBadPlanes(t *testing.T) {
	d, fc, _ := newTestDriver(0)
	err := d.Display(make([]byte, 10), make([]byte, PlaneSize))
	assert.ErrorContains(t, err, "byte planes")
	assert.Empty(t, fc.frames)
}

func TestSleepSequence(t *testing.T) {
	d, fc, _ := newTestDriver(0)
	require.NoError(t, d.Sleep())

	cmds := fc.commands()
	assert.Equal(t, []byte{cmdPowerOff, cmdGetStatus, cmdDeepSleep}, opcodes(cmds))
	assert.Equal(t, []byte{cmdDeepSleep, deepSleepCheck}, cmds[2].data)
}

func TestBusyTimeout(t *testing.T) {
	d, _, busy := newTestDriver(0)
	busy.L = gpio.Low

	var slept time.Duration
	d.sleep = func(dur time.Duration) { slept += dur }

	assert.ErrorIs(t, d.Sleep(), ErrBusyTimeout)
	assert.GreaterOrEqual(t, slept, busyTimeout)
}

func TestClearWithRecordedPort(t *testing.T) {
	rec := &spitest.Record{}
	c, err := rec.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	require.NoError(t, err)

	d := New(c, &gpiotest.Pin{N: "DC"}, &gpiotest.Pin{N: "RST"}, &gpiotest.Pin{N: "BUSY", L: gpio.High})
	d.sleep = func(time.Duration) {}
	require.NoError(t, d.Clear())

	var written int
	for _, op := range rec.Ops {
		written += len(op.W)
	}
	// Two planes plus four command bytes (black, red, refresh, status).
	assert.Equal(t, 2*PlaneSize+4, written)
	assert.Equal(t, []byte{cmdDataBlack}, rec.Ops[0].W)
	assert.Equal(t, byte(0xFF), rec.Ops[1].W[0])
}

func TestShow(t *testing.T) {
	d, fc, _ := newTestDriver(0)
	plane := bytes.Repeat([]byte{0xFF}, PlaneSize)
	require.NoError(t, d.Show(plane, plane))

	cmds := opcodes(fc.commands())
	assert.Equal(t, byte(cmdPowerSetting), cmds[0])
	assert.Equal(t, byte(cmdDeepSleep), cmds[len(cmds)-1])
}
