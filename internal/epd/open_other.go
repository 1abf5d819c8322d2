//go:build !linux

package epd

import "errors"

// Open is only supported on Linux hosts with spidev.
func Open() (*Driver, error) {
	return nil, errors.New("epd: SPI panel is only available on linux")
}
