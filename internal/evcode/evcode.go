// Package evcode carries the kernel evdev/uinput wire constants and the
// low-level ioctl helpers every other package in the injection engine is
// built on: event types, key/abs/rel code numbers, and the _IOC-encoded
// request numbers from input.h/uinput.h.
package evcode

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Event types (linux/input-event-codes.h).
const (
	EV_SYN uint16 = 0x00
	EV_KEY uint16 = 0x01
	EV_REL uint16 = 0x02
	EV_ABS uint16 = 0x03
	EV_MSC uint16 = 0x04
	EV_FF  uint16 = 0x15
	EV_LED uint16 = 0x11
)

// SYN codes.
const (
	SYN_REPORT   uint16 = 0
	SYN_CONFIG   uint16 = 1
	SYN_MT_REPORT uint16 = 2
	SYN_DROPPED  uint16 = 3
)

// LED codes used by the if_capslock/if_numlock macro nodes.
const (
	LED_NUML  uint16 = 0x00
	LED_CAPSL uint16 = 0x01
)

// A representative slice of REL/ABS codes the axis/wheel transformers and
// the model's capability checks need by name.
const (
	REL_X             uint16 = 0x00
	REL_Y             uint16 = 0x01
	REL_WHEEL         uint16 = 0x08
	REL_HWHEEL        uint16 = 0x06
	REL_WHEEL_HI_RES  uint16 = 0x0b
	REL_HWHEEL_HI_RES uint16 = 0x0c

	ABS_X  uint16 = 0x00
	ABS_Y  uint16 = 0x01
	ABS_Z  uint16 = 0x02
	ABS_RX uint16 = 0x03
	ABS_RY uint16 = 0x04
	ABS_RZ uint16 = 0x05

	BTN_LEFT   uint16 = 0x110
	BTN_RIGHT  uint16 = 0x111
	BTN_MIDDLE uint16 = 0x112
	BTN_TOUCH  uint16 = 0x14a
)

const (
	EVMax      = 0x1f
	EVCnt      = EVMax + 1
	KeyMax     = 0x2ff
	KeyCnt     = KeyMax + 1
	RelMax     = 0x0f
	RelCnt     = RelMax + 1
	AbsMax     = 0x3f
	AbsCnt     = AbsMax + 1
	LedMax     = 0x0f
	LedCnt     = LedMax + 1
	PropMax    = 0x1f
	PropCnt    = PropMax + 1
	UinputMaxNameSize = 80
)

// InputID mirrors struct input_id.
type InputID struct {
	BusType uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// AbsInfo mirrors struct input_absinfo.
type AbsInfo struct {
	Value      int32
	Minimum    int32
	Maximum    int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

// Event is the in-process representation of a kernel input_event, already
// decoded from its wire encoding. Time is dropped: nothing downstream of
// the producer depends on kernel wall-clock timestamps, only arrival order.
type Event struct {
	Type  uint16
	Code  uint16
	Value int32
	// Origin identifies the sub-device this event was read from. Empty for
	// synthetic events manufactured by a handler or the macro runtime.
	Origin string
}

func (e Event) IsSyn() bool { return e.Type == EV_SYN }
func (e Event) IsKey() bool { return e.Type == EV_KEY }
func (e Event) IsAbs() bool { return e.Type == EV_ABS }
func (e Event) IsRel() bool { return e.Type == EV_REL }

// ---- ioctl request number construction (linux/ioctl.h) ----

const (
	iocNone  = 0x0
	iocWrite = 0x1
	iocRead  = 0x2

	iocNrBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNrShift   = 0
	iocTypeShift = iocNrShift + iocNrBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits
)

func ioc(dir, typ, nr, size int) uintptr {
	return uintptr((dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNrShift) | (size << iocSizeShift))
}

func ior(typ, nr, size int) uintptr { return ioc(iocRead, typ, nr, size) }
func iow(typ, nr, size int) uintptr { return ioc(iocWrite, typ, nr, size) }

// evdev (input.h) request numbers.
func EVIOCGVERSION() uintptr   { return ior('E', 0x01, 4) }
func EVIOCGID() uintptr        { return ior('E', 0x02, int(unsafe.Sizeof(InputID{}))) }
func EVIOCGNAME() uintptr      { return ioc(iocRead, 'E', 0x06, UinputMaxNameSize) }
func EVIOCGPROP() uintptr      { return ioc(iocRead, 'E', 0x09, PropMax) }
func EVIOCGABS(abs int) uintptr {
	return ior('E', 0x40+abs, int(unsafe.Sizeof(AbsInfo{})))
}
func EVIOCGKEY() uintptr         { return ioc(iocRead, 'E', 0x18, KeyMax) }
func EVIOCGLED() uintptr         { return ioc(iocRead, 'E', 0x19, LedMax) }
func EVIOCGBIT(ev, length int) uintptr { return ioc(iocRead, 'E', 0x20+ev, length) }
func EVIOCGRAB() uintptr         { return iow('E', 0x90, 4) }

// uinput.h request numbers.
func UISETEVBIT() uintptr  { return iow('U', 100, 4) }
func UISETKEYBIT() uintptr { return iow('U', 101, 4) }
func UISETRELBIT() uintptr { return iow('U', 102, 4) }
func UISETABSBIT() uintptr { return iow('U', 103, 4) }
func UISETPROPBIT() uintptr { return iow('U', 110, 4) }
func UIDEVCREATE() uintptr { return ioc(iocNone, 'U', 1, 0) }
func UIDEVDESTROY() uintptr { return ioc(iocNone, 'U', 2, 0) }

// Ioctl performs a raw ioctl(2) against fd, wrapping x/sys/unix's syscall
// entry point the way the rest of the retrieval pack's Linux input code
// does (golang.org/x/sys/unix.Syscall with SYS_IOCTL) instead of reaching
// into the syscall package directly.
func Ioctl(fd uintptr, req uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, arg)
	if errno != 0 {
		return errno
	}
	return nil
}

func IoctlPtr(fd uintptr, req uintptr, ptr unsafe.Pointer) error {
	return Ioctl(fd, req, uintptr(ptr))
}
