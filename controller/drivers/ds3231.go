package drivers

import (
	"fmt"
	"time"

	"github.com/reef-pi/rpi/i2c"
)

// DS3231 registers
const (
	rtcRegTime   = 0x00
	rtcRegStatus = 0x0F

	rtcStatusOSF = 0x80 // oscillator stopped since last set
)

// DefaultRTCAddress is the DS3231's fixed address.
const DefaultRTCAddress byte = 0x68

// DS3231 is the battery-backed RTC keeping wall time across power cycles.
type DS3231 struct {
	bus  i2c.Bus
	addr byte
}

func NewDS3231(bus i2c.Bus, addr byte) (*DS3231, error) {
	d := &DS3231{bus: bus, addr: addr}
	if _, err := d.LostPower(); err != nil {
		return nil, fmt.Errorf("drivers: ds3231 not responding at 0x%02x: %w", addr, err)
	}
	return d, nil
}

// LostPower reports whether the oscillator stopped since the time was last
// set, meaning the stored time cannot be trusted.
func (d *DS3231) LostPower() (bool, error) {
	st := make([]byte, 1)
	if err := d.bus.ReadFromReg(d.addr, rtcRegStatus, st); err != nil {
		return false, err
	}
	return st[0]&rtcStatusOSF != 0, nil
}

func (d *DS3231) ReadTime() (time.Time, error) {
	buf := make([]byte, 7)
	if err := d.bus.ReadFromReg(d.addr, rtcRegTime, buf); err != nil {
		return time.Time{}, fmt.Errorf("drivers: ds3231 read: %w", err)
	}
	sec := fromBCD(buf[0] & 0x7F)
	min := fromBCD(buf[1] & 0x7F)
	hour := fromBCD(buf[2] & 0x3F) // 24h mode
	day := fromBCD(buf[4] & 0x3F)
	month := fromBCD(buf[5] & 0x1F)
	year := 2000 + fromBCD(buf[6])
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, time.Local), nil
}

func (d *DS3231) SetTime(t time.Time) error {
	t = t.Local()
	buf := []byte{
		toBCD(t.Second()),
		toBCD(t.Minute()),
		toBCD(t.Hour()),
		toBCD(int(t.Weekday()) + 1),
		toBCD(t.Day()),
		toBCD(int(t.Month())),
		toBCD(t.Year() % 100),
	}
	if err := d.bus.WriteToReg(d.addr, rtcRegTime, buf); err != nil {
		return fmt.Errorf("drivers: ds3231 set: %w", err)
	}
	// Clear the oscillator-stop flag so the new time is trusted
	st := make([]byte, 1)
	if err := d.bus.ReadFromReg(d.addr, rtcRegStatus, st); err != nil {
		return err
	}
	return d.bus.WriteToReg(d.addr, rtcRegStatus, []byte{st[0] &^ rtcStatusOSF})
}

func fromBCD(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}

func toBCD(v int) byte {
	return byte(v/10)<<4 | byte(v%10)
}
