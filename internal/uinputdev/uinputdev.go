// Package uinputdev implements the Virtual Output Registry (spec §4.7): a
// fixed set of named uinput sinks opened once per engine lifetime, each
// advertising a hardcoded capability set, with writes serialized per
// device. Adapted from the teacher's Uinput.go/UinputDefs.go: the ioctl
// sequence to register event/key/abs bits and create the device is the
// same shape, generalized from "one touch device cloned off a physical
// one" to "five named devices with hardcoded capability tables".
package uinputdev

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"syscall"

	"github.com/lunixbochs/struc"

	"inputinject/internal/evcode"
	"inputinject/internal/everr"
)

// uinputUserDev mirrors struct uinput_user_dev, packed with struc the same
// way the teacher's UinputDefs.go does for its cloned touch device.
type uinputUserDev struct {
	Name       [evcode.UinputMaxNameSize]byte
	ID         evcode.InputID
	EffectsMax uint32
	AbsMax     [evcode.AbsCnt]int32
	AbsMin     [evcode.AbsCnt]int32
	AbsFuzz    [evcode.AbsCnt]int32
	AbsFlat    [evcode.AbsCnt]int32
}

// wireEvent mirrors struct input_event for writes to /dev/uinput.
type wireEvent struct {
	Time  syscall.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// Device is one named virtual output sink.
type Device struct {
	Name string
	caps CapabilitySet
	file *os.File
	mu   sync.Mutex
}

// HasCapability reports whether this device advertises (evType, code).
func (d *Device) HasCapability(evType, code uint16) bool {
	return d.caps.has(evType, code)
}

// Write emits one event followed by SYN_REPORT, serialized against any
// other writer of this device (spec §4.7, §5 "multiple injections may
// share a virtual output and therefore share that serializer").
func (d *Device) Write(evType, code uint16, value int32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.writeOne(evType, code, value); err != nil {
		return err
	}
	return d.writeOne(evcode.EV_SYN, evcode.SYN_REPORT, 0)
}

func (d *Device) writeOne(evType, code uint16, value int32) error {
	var buf bytes.Buffer
	ev := wireEvent{Type: evType, Code: code, Value: value}
	if err := struc.PackWithOptions(&buf, &ev, &struc.Options{Order: binary.LittleEndian}); err != nil {
		return everr.Wrap(everr.TransientIO, err, "pack input_event")
	}
	if _, err := d.file.Write(buf.Bytes()); err != nil {
		return everr.Wrap(everr.TransientIO, err, fmt.Sprintf("write to uinput %q", d.Name))
	}
	return nil
}

func (d *Device) close() {
	_ = evcode.Ioctl(d.file.Fd(), evcode.UIDEVDESTROY(), 0)
	_ = d.file.Close()
}

// Registry owns the fixed set of named virtual outputs plus, for the
// currently-running injections, the per-injection "forwarded"/"mapped"
// devices the Supervisor opens around each start/stop.
type Registry struct {
	log     *slog.Logger
	mu      sync.Mutex
	devices map[string]*Device
}

// New returns an empty Registry. Call Open to materialize the fixed
// keyboard/mouse/gamepad/stylus/keyboard+mouse set.
func New(log *slog.Logger) *Registry {
	return &Registry{log: log, devices: make(map[string]*Device)}
}

// Open creates the fixed set of named virtual outputs. Called once at
// engine startup; calling it again is a no-op for devices already open.
func (r *Registry) Open() error {
	caps := builtinCapabilities()
	for _, name := range AllNames() {
		if err := r.openNamed(name, caps[name]); err != nil {
			return err
		}
	}
	return nil
}

// OpenInjectionDevices creates the "forwarded" and "mapped" uinputs for one
// injection, named uniquely per group so multiple injections don't collide.
func (r *Registry) OpenInjectionDevices(groupKey string) (forwarded, mapped *Device, err error) {
	fwdName := NameForwarded + ":" + groupKey
	mappedName := NameMapped + ":" + groupKey

	full := newCapSet()
	full.add(evcode.EV_KEY, keyboardKeys()...)
	full.add(evcode.EV_KEY, mouseButtons()...)
	full.add(evcode.EV_REL, evcode.REL_X, evcode.REL_Y, evcode.REL_WHEEL, evcode.REL_HWHEEL)
	full.add(evcode.EV_ABS, evcode.ABS_X, evcode.ABS_Y, evcode.ABS_Z, evcode.ABS_RX, evcode.ABS_RY, evcode.ABS_RZ)

	if err := r.openNamed(fwdName, full); err != nil {
		return nil, nil, err
	}
	if err := r.openNamed(mappedName, full); err != nil {
		r.Close(fwdName)
		return nil, nil, err
	}

	r.mu.Lock()
	f, m := r.devices[fwdName], r.devices[mappedName]
	r.mu.Unlock()
	return f, m, nil
}

// CloseInjectionDevices releases the forwarded/mapped devices for a group.
func (r *Registry) CloseInjectionDevices(groupKey string) {
	r.Close(NameForwarded + ":" + groupKey)
	r.Close(NameMapped + ":" + groupKey)
}

func (r *Registry) openNamed(name string, caps CapabilitySet) error {
	r.mu.Lock()
	if _, exists := r.devices[name]; exists {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	dev, err := createUinput(name, caps)
	if err != nil {
		return everr.Wrap(everr.PermissionDenied, err, fmt.Sprintf("create uinput %q", name))
	}

	r.mu.Lock()
	r.devices[name] = dev
	r.mu.Unlock()

	r.log.Debug("opened virtual output", "name", name)
	return nil
}

// createUinput performs the ioctl sequence the teacher's newTypeBDevSame
// uses (open /dev/uinput, set event/key/abs bits, write the uinput_user_dev
// struct, UIDEVCREATE), generalized to an arbitrary capability set instead
// of one cloned from a physical device.
func createUinput(name string, caps CapabilitySet) (*Device, error) {
	f, err := os.OpenFile("/dev/uinput", syscall.O_WRONLY|syscall.O_NONBLOCK, 0660)
	if err != nil {
		return nil, err
	}
	ok := false
	defer func() {
		if !ok {
			_ = evcode.Ioctl(f.Fd(), evcode.UIDEVDESTROY(), 0)
			_ = f.Close()
		}
	}()

	for evType, codes := range caps {
		if err := evcode.Ioctl(f.Fd(), evcode.UISETEVBIT(), uintptr(evType)); err != nil {
			return nil, fmt.Errorf("UI_SET_EVBIT(%d): %w", evType, err)
		}
		for code := range codes {
			var setReq uintptr
			switch evType {
			case evcode.EV_KEY:
				setReq = evcode.UISETKEYBIT()
			case evcode.EV_REL:
				setReq = evcode.UISETRELBIT()
			case evcode.EV_ABS:
				setReq = evcode.UISETABSBIT()
			default:
				continue
			}
			if err := evcode.Ioctl(f.Fd(), setReq, uintptr(code)); err != nil {
				return nil, fmt.Errorf("set bit type=%d code=%d: %w", evType, code, err)
			}
		}
	}

	var absMin, absMax, absFuzz, absFlat [evcode.AbsCnt]int32
	for code := range caps[evcode.EV_ABS] {
		lo, hi := defaultAbsRange(code)
		absMin[code] = lo
		absMax[code] = hi
	}

	uiDev := uinputUserDev{
		Name:       toFixedName(name),
		ID:         evcode.InputID{BusType: 0x03, Vendor: 0x1d6b, Product: 0x0101, Version: 1},
		AbsMax:     absMax,
		AbsMin:     absMin,
		AbsFuzz:    absFuzz,
		AbsFlat:    absFlat,
	}

	var buf bytes.Buffer
	if err := struc.PackWithOptions(&buf, &uiDev, &struc.Options{Order: binary.LittleEndian}); err != nil {
		return nil, err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		return nil, err
	}
	if err := evcode.Ioctl(f.Fd(), evcode.UIDEVCREATE(), 0); err != nil {
		return nil, err
	}

	ok = true
	return &Device{Name: name, caps: caps, file: f}, nil
}

// defaultAbsRange returns a plausible [min,max] for an ABS code this
// registry advertises. Joysticks and touch axes get a signed or unsigned
// 16-bit range; pressure/distance get a smaller unsigned range.
func defaultAbsRange(code uint16) (int32, int32) {
	switch code {
	case 0x18, 0x19, 0x1a, 0x1b: // PRESSURE/DISTANCE/TILT_X/TILT_Y
		return 0, 1024
	default:
		return -32767, 32767
	}
}

func toFixedName(name string) [evcode.UinputMaxNameSize]byte {
	var out [evcode.UinputMaxNameSize]byte
	copy(out[:], name)
	return out
}

// Get returns the named device, or nil if it has not been opened.
func (r *Registry) Get(name string) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.devices[name]
}

// Close releases one named device.
func (r *Registry) Close(name string) {
	r.mu.Lock()
	dev, ok := r.devices[name]
	if ok {
		delete(r.devices, name)
	}
	r.mu.Unlock()
	if ok {
		dev.close()
	}
}

// CloseAll releases every open device, called at daemon shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	devices := r.devices
	r.devices = make(map[string]*Device)
	r.mu.Unlock()
	for _, dev := range devices {
		dev.close()
	}
}

// HasCapability implements model.CapabilityChecker.
func (r *Registry) HasCapability(uinputName string, evType, code uint16) bool {
	dev := r.Get(uinputName)
	if dev == nil {
		return false
	}
	return dev.HasCapability(evType, code)
}

// KnownUinput implements model.CapabilityChecker: any of the 5 fixed names.
func (r *Registry) KnownUinput(name string) bool {
	for _, n := range AllNames() {
		if n == name {
			return true
		}
	}
	return false
}

// AxisRange reports the [min, max] this registry advertised for an ABS
// axis on the named device, so a RelToAbsHandler knows where to clamp.
// ok is false if the device is unknown or does not advertise that axis.
func (r *Registry) AxisRange(uinputName string, code uint16) (min, max int32, ok bool) {
	dev := r.Get(uinputName)
	if dev == nil || !dev.HasCapability(evcode.EV_ABS, code) {
		return 0, 0, false
	}
	lo, hi := defaultAbsRange(code)
	return lo, hi, true
}

// Write emits (evType, code, value) + SYN_REPORT to the named device.
// Retries a transient failure a small bounded number of times before
// dropping the single emission, per spec §7 TransientIO.
func (r *Registry) Write(name string, evType, code uint16, value int32) error {
	dev := r.Get(name)
	if dev == nil {
		return everr.Newf(everr.Fatal, "write to unknown uinput %q", name)
	}
	const maxRetries = 3
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = dev.Write(evType, code, value); err == nil {
			return nil
		}
	}
	r.log.Warn("dropping emission after retries", "uinput", name, "error", err)
	return err
}
