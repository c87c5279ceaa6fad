package drivers

import (
	"fmt"

	"github.com/reef-pi/rpi/i2c"
)

// CharDisplay is the status display at its interface boundary: a handful of
// text lines, redrawn wholesale. A nil display is a supported configuration;
// the system degrades to log-only status.
type CharDisplay interface {
	ShowLines(lines ...string) error
	Close() error
}

// DefaultOLEDAddress is the usual SSD1306 address.
const DefaultOLEDAddress byte = 0x3C

const (
	oledWidth  = 128
	oledHeight = 32
	oledPages  = oledHeight / 8
	oledCols   = oledWidth / 6 // 5px glyph + 1px gap
)

// SSD1306 is a 128x32 OLED treated as a 4-line character display.
type SSD1306 struct {
	bus  i2c.Bus
	addr byte
}

func NewSSD1306(bus i2c.Bus, addr byte) (*SSD1306, error) {
	d := &SSD1306{bus: bus, addr: addr}
	init := []byte{
		0xAE,       // display off
		0xD5, 0x80, // clock divide
		0xA8, 0x1F, // multiplex for 32 rows
		0xD3, 0x00, // no display offset
		0x40,       // start line 0
		0x8D, 0x14, // charge pump on
		0x20, 0x00, // horizontal addressing
		0xA1, 0xC8, // flip both axes, matching the mounted orientation
		0xDA, 0x02, // com pins for 128x32
		0x81, 0x8F, // contrast
		0xD9, 0xF1, // precharge
		0xDB, 0x40, // vcom detect
		0xA4, // resume from RAM
		0xA6, // normal polarity
		0xAF, // display on
	}
	if err := d.commands(init...); err != nil {
		return nil, fmt.Errorf("drivers: ssd1306 init at 0x%02x: %w", addr, err)
	}
	return d, d.ShowLines()
}

// ShowLines clears the panel and renders up to four 21-character lines.
func (d *SSD1306) ShowLines(lines ...string) error {
	buf := make([]byte, oledWidth*oledPages)
	for row := 0; row < oledPages && row < len(lines); row++ {
		line := lines[row]
		for col := 0; col < oledCols && col < len(line); col++ {
			ch := line[col]
			if ch < 0x20 || ch > 0x7E {
				ch = '?'
			}
			glyph := font5x7[ch-0x20]
			base := row*oledWidth + col*6
			copy(buf[base:base+5], glyph[:])
		}
	}
	if err := d.commands(
		0x21, 0x00, oledWidth-1, // column range
		0x22, 0x00, oledPages-1, // page range
	); err != nil {
		return err
	}
	// Stream the framebuffer in chunks small enough for the bus driver
	for off := 0; off < len(buf); off += 32 {
		end := off + 32
		if end > len(buf) {
			end = len(buf)
		}
		chunk := append([]byte{0x40}, buf[off:end]...)
		if err := d.bus.WriteBytes(d.addr, chunk); err != nil {
			return fmt.Errorf("drivers: ssd1306 data: %w", err)
		}
	}
	return nil
}

func (d *SSD1306) Close() error {
	return d.commands(0xAE)
}

func (d *SSD1306) commands(cmds ...byte) error {
	for _, c := range cmds {
		if err := d.bus.WriteBytes(d.addr, []byte{0x00, c}); err != nil {
			return fmt.Errorf("drivers: ssd1306 cmd 0x%02x: %w", c, err)
		}
	}
	return nil
}

// font5x7 covers printable ASCII 0x20-0x7E, column-major, LSB at the top.
var font5x7 = [95][5]byte{
	{0x00, 0x00, 0x00, 0x00, 0x00}, // space
	{0x00, 0x00, 0x5F, 0x00, 0x00}, // !
	{0x00, 0x07, 0x00, 0x07, 0x00}, // "
	{0x14, 0x7F, 0x14, 0x7F, 0x14}, // #
	{0x24, 0x2A, 0x7F, 0x2A, 0x12}, // $
	{0x23, 0x13, 0x08, 0x64, 0x62}, // %
	{0x36, 0x49, 0x55, 0x22, 0x50}, // &
	{0x00, 0x05, 0x03, 0x00, 0x00}, // '
	{0x00, 0x1C, 0x22, 0x41, 0x00}, // (
	{0x00, 0x41, 0x22, 0x1C, 0x00}, // )
	{0x08, 0x2A, 0x1C, 0x2A, 0x08}, // *
	{0x08, 0x08, 0x3E, 0x08, 0x08}, // +
	{0x00, 0x50, 0x30, 0x00, 0x00}, // ,
	{0x08, 0x08, 0x08, 0x08, 0x08}, // -
	{0x00, 0x60, 0x60, 0x00, 0x00}, // .
	{0x20, 0x10, 0x08, 0x04, 0x02}, // /
	{0x3E, 0x51, 0x49, 0x45, 0x3E}, // 0
	{0x00, 0x42, 0x7F, 0x40, 0x00}, // 1
	{0x42, 0x61, 0x51, 0x49, 0x46}, // 2
	{0x21, 0x41, 0x45, 0x4B, 0x31}, // 3
	{0x18, 0x14, 0x12, 0x7F, 0x10}, // 4
	{0x27, 0x45, 0x45, 0x45, 0x39}, // 5
	{0x3C, 0x4A, 0x49, 0x49, 0x30}, // 6
	{0x01, 0x71, 0x09, 0x05, 0x03}, // 7
	{0x36, 0x49, 0x49, 0x49, 0x36}, // 8
	{0x06, 0x49, 0x49, 0x29, 0x1E}, // 9
	{0x00, 0x36, 0x36, 0x00, 0x00}, // :
	{0x00, 0x56, 0x36, 0x00, 0x00}, // ;
	{0x00, 0x08, 0x14, 0x22, 0x41}, // <
	{0x14, 0x14, 0x14, 0x14, 0x14}, // =
	{0x41, 0x22, 0x14, 0x08, 0x00}, // >
	{0x02, 0x01, 0x51, 0x09, 0x06}, // ?
	{0x32, 0x49, 0x79, 0x41, 0x3E}, // @
	{0x7E, 0x11, 0x11, 0x11, 0x7E}, // A
	{0x7F, 0x49, 0x49, 0x49, 0x36}, // B
	{0x3E, 0x41, 0x41, 0x41, 0x22}, // C
	{0x7F, 0x41, 0x41, 0x22, 0x1C}, // D
	{0x7F, 0x49, 0x49, 0x49, 0x41}, // E
	{0x7F, 0x09, 0x09, 0x01, 0x01}, // F
	{0x3E, 0x41, 0x41, 0x51, 0x32}, // G
	{0x7F, 0x08, 0x08, 0x08, 0x7F}, // H
	{0x00, 0x41, 0x7F, 0x41, 0x00}, // I
	{0x20, 0x40, 0x41, 0x3F, 0x01}, // J
	{0x7F, 0x08, 0x14, 0x22, 0x41}, // K
	{0x7F, 0x40, 0x40, 0x40, 0x40}, // L
	{0x7F, 0x02, 0x04, 0x02, 0x7F}, // M
	{0x7F, 0x04, 0x08, 0x10, 0x7F}, // N
	{0x3E, 0x41, 0x41, 0x41, 0x3E}, // O
	{0x7F, 0x09, 0x09, 0x09, 0x06}, // P
	{0x3E, 0x41, 0x51, 0x21, 0x5E}, // Q
	{0x7F, 0x09, 0x19, 0x29, 0x46}, // R
	{0x46, 0x49, 0x49, 0x49, 0x31}, // S
	{0x01, 0x01, 0x7F, 0x01, 0x01}, // T
	{0x3F, 0x40, 0x40, 0x40, 0x3F}, // U
	{0x1F, 0x20, 0x40, 0x20, 0x1F}, // V
	{0x7F, 0x20, 0x18, 0x20, 0x7F}, // W
	{0x63, 0x14, 0x08, 0x14, 0x63}, // X
	{0x03, 0x04, 0x78, 0x04, 0x03}, // Y
	{0x61, 0x51, 0x49, 0x45, 0x43}, // Z
	{0x00, 0x00, 0x7F, 0x41, 0x41}, // [
	{0x02, 0x04, 0x08, 0x10, 0x20}, // backslash
	{0x41, 0x41, 0x7F, 0x00, 0x00}, // ]
	{0x04, 0x02, 0x01, 0x02, 0x04}, // ^
	{0x40, 0x40, 0x40, 0x40, 0x40}, // _
	{0x00, 0x01, 0x02, 0x04, 0x00}, // `
	{0x20, 0x54, 0x54, 0x54, 0x78}, // a
	{0x7F, 0x48, 0x44, 0x44, 0x38}, // b
	{0x38, 0x44, 0x44, 0x44, 0x20}, // c
	{0x38, 0x44, 0x44, 0x48, 0x7F}, // d
	{0x38, 0x54, 0x54, 0x54, 0x18}, // e
	{0x08, 0x7E, 0x09, 0x01, 0x02}, // f
	{0x08, 0x14, 0x54, 0x54, 0x3C}, // g
	{0x7F, 0x08, 0x04, 0x04, 0x78}, // h
	{0x00, 0x44, 0x7D, 0x40, 0x00}, // i
	{0x20, 0x40, 0x44, 0x3D, 0x00}, // j
	{0x00, 0x7F, 0x10, 0x28, 0x44}, // k
	{0x00, 0x41, 0x7F, 0x40, 0x00}, // l
	{0x7C, 0x04, 0x18, 0x04, 0x78}, // m
	{0x7C, 0x08, 0x04, 0x04, 0x78}, // n
	{0x38, 0x44, 0x44, 0x44, 0x38}, // o
	{0x7C, 0x14, 0x14, 0x14, 0x08}, // p
	{0x08, 0x14, 0x14, 0x18, 0x7C}, // q
	{0x7C, 0x08, 0x04, 0x04, 0x08}, // r
	{0x48, 0x54, 0x54, 0x54, 0x20}, // s
	{0x04, 0x3F, 0x44, 0x40, 0x20}, // t
	{0x3C, 0x40, 0x40, 0x20, 0x7C}, // u
	{0x1C, 0x20, 0x40, 0x20, 0x1C}, // v
	{0x3C, 0x40, 0x30, 0x40, 0x3C}, // w
	{0x44, 0x28, 0x10, 0x28, 0x44}, // x
	{0x0C, 0x50, 0x50, 0x50, 0x3C}, // y
	{0x44, 0x64, 0x54, 0x4C, 0x44}, // z
	{0x00, 0x08, 0x36, 0x41, 0x00}, // {
	{0x00, 0x00, 0x7F, 0x00, 0x00}, // |
	{0x00, 0x41, 0x36, 0x08, 0x00}, // }
	{0x08, 0x08, 0x2A, 0x1C, 0x08}, // ~
}
