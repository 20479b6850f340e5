package uinputdev

import "inputinject/internal/evcode"

// CapabilitySet is {type -> set of codes} a uinput device advertises.
type CapabilitySet map[uint16]map[uint16]bool

func newCapSet() CapabilitySet { return CapabilitySet{} }

func (c CapabilitySet) add(evType uint16, codes ...uint16) {
	m, ok := c[evType]
	if !ok {
		m = make(map[uint16]bool, len(codes))
		c[evType] = m
	}
	for _, code := range codes {
		m[code] = true
	}
}

func (c CapabilitySet) has(evType, code uint16) bool {
	m, ok := c[evType]
	if !ok {
		return false
	}
	return m[code]
}

// keyboardKeys is "the full KEY space minus mouse codes": every KEY_*
// code below the BTN_MOUSE block, plus the extended multimedia/function
// keys a real keyboard also advertises.
func keyboardKeys() []uint16 {
	codes := make([]uint16, 0, 256)
	for c := uint16(1); c < 0x100; c++ {
		codes = append(codes, c)
	}
	extra := []uint16{183, 184, 185, 186, 187, 188, 189, 190, 191, 192, 193, 194, 164, 113, 114, 115, 163, 165, 166}
	codes = append(codes, extra...)
	return codes
}

func mouseButtons() []uint16 {
	return []uint16{evcode.BTN_LEFT, evcode.BTN_RIGHT, evcode.BTN_MIDDLE, 0x113, 0x114, 0x115, 0x116}
}

func gamepadButtons() []uint16 {
	return []uint16{0x130, 0x131, 0x133, 0x134, 0x136, 0x137, 0x138, 0x139, 0x13a, 0x13b, 0x13c, 0x13d, 0x13e, 0x220, 0x221, 0x222, 0x223}
}

// builtinCapabilities returns the fixed capability declaration for each of
// the spec §4.7 named virtual outputs: keyboard, mouse, gamepad, stylus,
// "keyboard+mouse".
func builtinCapabilities() map[string]CapabilitySet {
	keyboard := newCapSet()
	keyboard.add(evcode.EV_KEY, keyboardKeys()...)

	mouse := newCapSet()
	mouse.add(evcode.EV_KEY, mouseButtons()...)
	mouse.add(evcode.EV_REL, evcode.REL_X, evcode.REL_Y, evcode.REL_WHEEL,
		evcode.REL_HWHEEL, evcode.REL_WHEEL_HI_RES, evcode.REL_HWHEEL_HI_RES)

	gamepad := newCapSet()
	gamepad.add(evcode.EV_KEY, gamepadButtons()...)
	gamepad.add(evcode.EV_ABS, evcode.ABS_X, evcode.ABS_Y, evcode.ABS_Z,
		evcode.ABS_RX, evcode.ABS_RY, evcode.ABS_RZ, 0x10, 0x11) // HAT0X/Y

	stylus := newCapSet()
	stylus.add(evcode.EV_KEY, evcode.BTN_TOUCH, 0x14b, 0x14c, 0x140, 0x141)
	stylus.add(evcode.EV_ABS, evcode.ABS_X, evcode.ABS_Y, 0x18, 0x19, 0x1a, 0x1b) // PRESSURE/DISTANCE/TILT

	keyboardMouse := newCapSet()
	for evType, codes := range keyboard {
		for code := range codes {
			keyboardMouse.add(evType, code)
		}
	}
	for evType, codes := range mouse {
		for code := range codes {
			keyboardMouse.add(evType, code)
		}
	}

	return map[string]CapabilitySet{
		NameKeyboard:      keyboard,
		NameMouse:         mouse,
		NameGamepad:       gamepad,
		NameStylus:        stylus,
		NameKeyboardMouse: keyboardMouse,
	}
}

// Named outputs (spec §2 item 5 and §4.7).
const (
	NameKeyboard      = "keyboard"
	NameMouse         = "mouse"
	NameGamepad       = "gamepad"
	NameStylus        = "stylus"
	NameKeyboardMouse = "keyboard+mouse"

	// NameForwarded and NameMapped are the two per-injection uinputs the
	// Supervisor creates/destroys around each start/stop (spec §4.1).
	NameForwarded = "forwarded"
	NameMapped    = "mapped"
)

// AllNames lists the fixed set of named outputs opened once at engine
// startup.
func AllNames() []string {
	return []string{NameKeyboard, NameMouse, NameGamepad, NameStylus, NameKeyboardMouse}
}
