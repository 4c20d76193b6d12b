package hotkey

import "encoding/binary"

// Linux input event codes.
const (
	evKey      = 1
	keyPress   = 1
	keyRelease = 0
	keyLCtrl   = 29
	keyRCtrl   = 97
	keyLShift  = 42
	keyRShift  = 54
	keyM       = 50
)

// inputEventSize is sizeof(struct input_event) on 64-bit Linux.
const inputEventSize = 24

// comboState tracks modifier state across evdev key events and reports
// transitions of the Ctrl+Shift+M combination. Auto-repeat events (value 2)
// never produce a second keydown.
type comboState struct {
	ctrl, shift, held bool
}

func (c *comboState) feed(code uint16, value int32) (down, up bool) {
	pressed := value == keyPress
	released := value == keyRelease

	switch code {
	case keyLCtrl, keyRCtrl:
		c.ctrl = pressed || (!released && c.ctrl)
	case keyLShift, keyRShift:
		c.shift = pressed || (!released && c.shift)
	case keyM:
		if pressed && !c.held && c.ctrl && c.shift {
			c.held = true
			return true, false
		}
		if released && c.held {
			c.held = false
			return false, true
		}
	}
	return false, false
}

// decode walks a buffer of raw input_event records.
func (c *comboState) decode(buf []byte, onDown, onUp func()) {
	for i := 0; i+inputEventSize <= len(buf); i += inputEventSize {
		if binary.LittleEndian.Uint16(buf[i+16:]) != evKey {
			continue
		}
		code := binary.LittleEndian.Uint16(buf[i+18:])
		value := int32(binary.LittleEndian.Uint32(buf[i+20:]))
		down, up := c.feed(code, value)
		if down {
			onDown()
		}
		if up {
			onUp()
		}
	}
}
