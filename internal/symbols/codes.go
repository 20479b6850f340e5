package symbols

// Builtin name tables, lifted from linux/input-event-codes.h. This is not
// the full kernel code space (2.16.5/GLOSSARY acknowledges evdev's symbol
// database is host-provided); it covers every code a mapping author is
// likely to type by hand, plus the gamepad/mouse/stylus buttons the
// Virtual Output Registry advertises.

var keyNames = map[string]int{
	"KEY_ESC": 1, "KEY_1": 2, "KEY_2": 3, "KEY_3": 4, "KEY_4": 5, "KEY_5": 6,
	"KEY_6": 7, "KEY_7": 8, "KEY_8": 9, "KEY_9": 10, "KEY_0": 11,
	"KEY_MINUS": 12, "KEY_EQUAL": 13, "KEY_BACKSPACE": 14, "KEY_TAB": 15,
	"KEY_Q": 16, "KEY_W": 17, "KEY_E": 18, "KEY_R": 19, "KEY_T": 20,
	"KEY_Y": 21, "KEY_U": 22, "KEY_I": 23, "KEY_O": 24, "KEY_P": 25,
	"KEY_LEFTBRACE": 26, "KEY_RIGHTBRACE": 27, "KEY_ENTER": 28,
	"KEY_LEFTCTRL": 29, "KEY_A": 30, "KEY_S": 31, "KEY_D": 32, "KEY_F": 33,
	"KEY_G": 34, "KEY_H": 35, "KEY_J": 36, "KEY_K": 37, "KEY_L": 38,
	"KEY_SEMICOLON": 39, "KEY_APOSTROPHE": 40, "KEY_GRAVE": 41,
	"KEY_LEFTSHIFT": 42, "KEY_BACKSLASH": 43, "KEY_Z": 44, "KEY_X": 45,
	"KEY_C": 46, "KEY_V": 47, "KEY_B": 48, "KEY_N": 49, "KEY_M": 50,
	"KEY_COMMA": 51, "KEY_DOT": 52, "KEY_SLASH": 53, "KEY_RIGHTSHIFT": 54,
	"KEY_KPASTERISK": 55, "KEY_LEFTALT": 56, "KEY_SPACE": 57,
	"KEY_CAPSLOCK": 58, "KEY_F1": 59, "KEY_F2": 60, "KEY_F3": 61,
	"KEY_F4": 62, "KEY_F5": 63, "KEY_F6": 64, "KEY_F7": 65, "KEY_F8": 66,
	"KEY_F9": 67, "KEY_F10": 68, "KEY_NUMLOCK": 69, "KEY_SCROLLLOCK": 70,
	"KEY_KP7": 71, "KEY_KP8": 72, "KEY_KP9": 73, "KEY_KPMINUS": 74,
	"KEY_KP4": 75, "KEY_KP5": 76, "KEY_KP6": 77, "KEY_KPPLUS": 78,
	"KEY_KP1": 79, "KEY_KP2": 80, "KEY_KP3": 81, "KEY_KP0": 82,
	"KEY_KPDOT": 83, "KEY_F11": 87, "KEY_F12": 88, "KEY_KPENTER": 96,
	"KEY_RIGHTCTRL": 97, "KEY_KPSLASH": 98, "KEY_SYSRQ": 99,
	"KEY_RIGHTALT": 100, "KEY_LINEFEED": 101, "KEY_HOME": 102,
	"KEY_UP": 103, "KEY_PAGEUP": 104, "KEY_LEFT": 105, "KEY_RIGHT": 106,
	"KEY_END": 107, "KEY_DOWN": 108, "KEY_PAGEDOWN": 109, "KEY_INSERT": 110,
	"KEY_DELETE": 111, "KEY_KPEQUAL": 117, "KEY_PAUSE": 119,
	"KEY_LEFTMETA": 125, "KEY_RIGHTMETA": 126, "KEY_COMPOSE": 127,
	"KEY_F13": 183, "KEY_F14": 184, "KEY_F15": 185, "KEY_F16": 186,
	"KEY_F17": 187, "KEY_F18": 188, "KEY_F19": 189, "KEY_F20": 190,
	"KEY_F21": 191, "KEY_F22": 192, "KEY_F23": 193, "KEY_F24": 194,
	"KEY_PLAYPAUSE": 164, "KEY_MUTE": 113, "KEY_VOLUMEDOWN": 114,
	"KEY_VOLUMEUP": 115, "KEY_NEXTSONG": 163, "KEY_PREVIOUSSONG": 165,
	"KEY_STOPCD": 166,

	"BTN_LEFT": 0x110, "BTN_RIGHT": 0x111, "BTN_MIDDLE": 0x112,
	"BTN_SIDE": 0x113, "BTN_EXTRA": 0x114, "BTN_FORWARD": 0x115,
	"BTN_BACK": 0x116, "BTN_TASK": 0x117,
	"BTN_SOUTH": 0x130, "BTN_EAST": 0x131, "BTN_NORTH": 0x133,
	"BTN_WEST": 0x134, "BTN_TL": 0x136, "BTN_TR": 0x137, "BTN_TL2": 0x138,
	"BTN_TR2": 0x139, "BTN_SELECT": 0x13a, "BTN_START": 0x13b,
	"BTN_MODE": 0x13c, "BTN_THUMBL": 0x13d, "BTN_THUMBR": 0x13e,
	"BTN_TOUCH": 0x14a, "BTN_STYLUS": 0x14b, "BTN_STYLUS2": 0x14c,
	"BTN_TOOL_PEN": 0x140, "BTN_TOOL_RUBBER": 0x141,
	"BTN_DPAD_UP": 0x220, "BTN_DPAD_DOWN": 0x221, "BTN_DPAD_LEFT": 0x222,
	"BTN_DPAD_RIGHT": 0x223,
}

var relNames = map[string]int{
	"REL_X": 0x00, "REL_Y": 0x01, "REL_Z": 0x02,
	"REL_RX": 0x03, "REL_RY": 0x04, "REL_RZ": 0x05,
	"REL_HWHEEL": 0x06, "REL_DIAL": 0x07, "REL_WHEEL": 0x08,
	"REL_MISC": 0x09, "REL_WHEEL_HI_RES": 0x0b, "REL_HWHEEL_HI_RES": 0x0c,
}

var absNames = map[string]int{
	"ABS_X": 0x00, "ABS_Y": 0x01, "ABS_Z": 0x02,
	"ABS_RX": 0x03, "ABS_RY": 0x04, "ABS_RZ": 0x05,
	"ABS_THROTTLE": 0x06, "ABS_RUDDER": 0x07, "ABS_WHEEL": 0x08,
	"ABS_GAS": 0x09, "ABS_BRAKE": 0x0a,
	"ABS_HAT0X": 0x10, "ABS_HAT0Y": 0x11,
	"ABS_HAT1X": 0x12, "ABS_HAT1Y": 0x13,
	"ABS_PRESSURE": 0x18, "ABS_DISTANCE": 0x19,
	"ABS_TILT_X": 0x1a, "ABS_TILT_Y": 0x1b,
	"ABS_MT_SLOT": 0x2f, "ABS_MT_POSITION_X": 0x35, "ABS_MT_POSITION_Y": 0x36,
	"ABS_MT_TRACKING_ID": 0x39,
}
