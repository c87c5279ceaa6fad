package drivers

import "github.com/reef-pi/rpi/i2c"

// ScanBus probes the valid 7-bit address range and returns the addresses that
// acknowledge a read. Startup diagnostics only; a probe failure just means
// nothing is listening there.
func ScanBus(bus i2c.Bus) []byte {
	var found []byte
	for addr := byte(0x03); addr <= 0x77; addr++ {
		if _, err := bus.ReadBytes(addr, 1); err == nil {
			found = append(found, addr)
		}
	}
	return found
}
