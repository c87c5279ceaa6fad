package drivers

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/reef-pi/rpi/i2c"
)

// MPU-6050 registers
const (
	mpuRegConfig      = 0x1A
	mpuRegAccelConfig = 0x1C
	mpuRegAccelXOutH  = 0x3B
	mpuRegPwrMgmt1    = 0x6B
	mpuRegWhoAmI      = 0x75

	mpuWhoAmI = 0x68

	mpuDLPF21Hz    = 0x04
	mpuAccelRange8 = 0x10 // +/- 8g
)

// DefaultMPUAddress is the chip's address with AD0 low.
const DefaultMPUAddress byte = 0x68

// MPU6050 reads the probe tilt from the accelerometer of an MPU-6050 IMU.
// One call yields one instantaneous sample; averaging and rejection are the
// sequencer's business.
type MPU6050 struct {
	bus  i2c.Bus
	addr byte
}

// NewMPU6050 probes and configures the sensor. An absent chip is an error:
// the instrument cannot do anything useful without its tilt sensor.
func NewMPU6050(bus i2c.Bus, addr byte) (*MPU6050, error) {
	m := &MPU6050{bus: bus, addr: addr}
	id := make([]byte, 1)
	if err := bus.ReadFromReg(addr, mpuRegWhoAmI, id); err != nil {
		return nil, fmt.Errorf("drivers: mpu6050 not responding at 0x%02x: %w", addr, err)
	}
	if id[0] != mpuWhoAmI {
		return nil, fmt.Errorf("drivers: unexpected WHO_AM_I 0x%02x at 0x%02x", id[0], addr)
	}
	// Wake from sleep, select the internal clock
	if err := bus.WriteToReg(addr, mpuRegPwrMgmt1, []byte{0x00}); err != nil {
		return nil, fmt.Errorf("drivers: mpu6050 wake: %w", err)
	}
	if err := bus.WriteToReg(addr, mpuRegAccelConfig, []byte{mpuAccelRange8}); err != nil {
		return nil, fmt.Errorf("drivers: mpu6050 accel range: %w", err)
	}
	if err := bus.WriteToReg(addr, mpuRegConfig, []byte{mpuDLPF21Hz}); err != nil {
		return nil, fmt.Errorf("drivers: mpu6050 filter: %w", err)
	}
	return m, nil
}

// ReadAngle returns the tilt angle in degrees, derived from the Y/Z
// acceleration vector. Flat probe reads near 0, vertical near +/-90.
func (m *MPU6050) ReadAngle() (float64, error) {
	buf := make([]byte, 6)
	if err := m.bus.ReadFromReg(m.addr, mpuRegAccelXOutH, buf); err != nil {
		return 0, fmt.Errorf("drivers: mpu6050 read accel: %w", err)
	}
	ay := int16(binary.BigEndian.Uint16(buf[2:4]))
	az := int16(binary.BigEndian.Uint16(buf[4:6]))
	return math.Atan2(float64(ay), float64(az)) * 180.0 / math.Pi, nil
}
