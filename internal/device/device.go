// Package device implements the Device Inventory (spec §4.2): it
// enumerates /dev/input/eventN nodes, reads each one's identity and
// capability bitmaps, and groups sub-devices that belong to the same
// physical peripheral under a stable group key. Adapted from the
// teacher's getInputDevices/InputDevice in Uinput.go: the same
// EVIOCGBIT/EVIOCGPROP/EVIOCGID/EVIOCGNAME probing sequence, generalized
// from "find the one touchscreen" to "enumerate and group everything".
package device

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"unsafe"

	"inputinject/internal/evcode"
	"inputinject/internal/everr"
)

// SubDevice is one /dev/input/eventN node and the identity/capability
// data the inventory read off it.
type SubDevice struct {
	Path    string
	Name    string
	ID      evcode.InputID
	evBits  bitset
	keyBits bitset
	absBits bitset
	relBits bitset
	AbsInfo map[uint16]evcode.AbsInfo
}

// OriginHash identifies this sub-device for InputConfig.OriginHash binding
// and for producer tagging: a short hex digest of its stable path, stable
// across daemon restarts as long as the kernel assigns the same eventN.
func (s *SubDevice) OriginHash() string {
	sum := sha1.Sum([]byte(s.Path))
	return hex.EncodeToString(sum[:])[:12]
}

func (s *SubDevice) hasEv(t uint16) bool   { return s.evBits.has(int(t)) }
func (s *SubDevice) HasKey(c uint16) bool  { return s.keyBits.has(int(c)) }
func (s *SubDevice) HasAbs(c uint16) bool  { return s.absBits.has(int(c)) }
func (s *SubDevice) HasRel(c uint16) bool  { return s.relBits.has(int(c)) }

// HasCapability reports whether this sub-device can source (evType, code),
// used by producers to decide which sub-device an InputConfig.OriginHash
// binding should resolve against.
func (s *SubDevice) HasCapability(evType, code uint16) bool {
	switch evType {
	case evcode.EV_KEY:
		return s.HasKey(code)
	case evcode.EV_ABS:
		return s.HasAbs(code)
	case evcode.EV_REL:
		return s.HasRel(code)
	default:
		return s.hasEv(evType)
	}
}

// Group is a set of sub-devices sharing one stable identity (spec §4.2:
// "sub-devices that enumerate as siblings of the same physical
// peripheral - e.g. a keyboard that exposes both a KEY node and a
// consumer-control node - are grouped under one key").
type Group struct {
	Key        string
	Name       string
	SubDevices []*SubDevice
}

// Resolve returns the sub-device paths belonging to this group, stable
// order (sorted by path) so repeated calls are deterministic.
func (g *Group) Resolve() []string {
	paths := make([]string, len(g.SubDevices))
	for i, sd := range g.SubDevices {
		paths[i] = sd.Path
	}
	sort.Strings(paths)
	return paths
}

// bitset is a fixed-size little-endian bitmap as returned by EVIOCGBIT et
// al., indexable by bit position.
type bitset []byte

func (b bitset) has(bit int) bool {
	idx := bit / 8
	if idx < 0 || idx >= len(b) {
		return false
	}
	return b[idx]&(1<<uint(bit%8)) != 0
}

// Scan enumerates every readable /dev/input/eventN node and groups them
// into physical-device Groups. Returns everr.NoDevicesErr-kinded error if
// nothing was found or readable (spec §7).
func Scan() ([]*Group, error) {
	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return nil, everr.Wrap(everr.TransientIO, err, "glob /dev/input")
	}

	var subs []*SubDevice
	for _, path := range paths {
		sd, err := probe(path)
		if err != nil {
			continue
		}
		subs = append(subs, sd)
	}

	if len(subs) == 0 {
		return nil, everr.New(everr.NoDevicesFound, "no readable input devices found under /dev/input")
	}

	return groupByIdentity(subs), nil
}

// probe opens one event node read-only and reads its identity and
// capability bitmaps, mirroring the teacher's per-device probing loop in
// getInputDevices.
func probe(path string) (*SubDevice, error) {
	fi, err := os.Stat(path)
	if err != nil || fi.Mode()&os.ModeCharDevice == 0 {
		return nil, fmt.Errorf("%s is not a character device", path)
	}

	f, err := os.OpenFile(path, syscall.O_RDONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	evBits := make(bitset, evcode.EVCnt/8+1)
	if err := evcode.IoctlPtr(f.Fd(), evcode.EVIOCGBIT(0, evcode.EVCnt/8+1), unsafe.Pointer(&evBits[0])); err != nil {
		return nil, err
	}

	keyBits := make(bitset, evcode.KeyCnt/8+1)
	_ = evcode.IoctlPtr(f.Fd(), evcode.EVIOCGBIT(int(evcode.EV_KEY), evcode.KeyCnt/8+1), unsafe.Pointer(&keyBits[0]))

	absBits := make(bitset, evcode.AbsCnt/8+1)
	_ = evcode.IoctlPtr(f.Fd(), evcode.EVIOCGBIT(int(evcode.EV_ABS), evcode.AbsCnt/8+1), unsafe.Pointer(&absBits[0]))

	relBits := make(bitset, evcode.RelCnt/8+1)
	_ = evcode.IoctlPtr(f.Fd(), evcode.EVIOCGBIT(int(evcode.EV_REL), evcode.RelCnt/8+1), unsafe.Pointer(&relBits[0]))

	var id evcode.InputID
	_ = evcode.IoctlPtr(f.Fd(), evcode.EVIOCGID(), unsafe.Pointer(&id))

	name := readName(f)

	sd := &SubDevice{
		Path:    path,
		Name:    name,
		ID:      id,
		evBits:  evBits,
		keyBits: keyBits,
		absBits: absBits,
		relBits: relBits,
		AbsInfo: map[uint16]evcode.AbsInfo{},
	}

	for code := uint16(0); code <= evcode.AbsMax; code++ {
		if !absBits.has(int(code)) {
			continue
		}
		var info evcode.AbsInfo
		if err := evcode.IoctlPtr(f.Fd(), evcode.EVIOCGABS(int(code)), unsafe.Pointer(&info)); err == nil {
			sd.AbsInfo[code] = info
		}
	}

	return sd, nil
}

func readName(f *os.File) string {
	var buf [evcode.UinputMaxNameSize]byte
	if err := evcode.IoctlPtr(f.Fd(), evcode.EVIOCGNAME(), unsafe.Pointer(&buf[0])); err != nil {
		return "unknown"
	}
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf[:])
}

// groupByIdentity groups sub-devices by (vendor, product, name): the
// stable triple the kernel assigns to every event node spawned by the
// same physical peripheral. The group key is a hash of that triple so it
// stays stable across /dev/input/eventN renumbering on reconnect.
func groupByIdentity(subs []*SubDevice) []*Group {
	order := []string{}
	byKey := map[string]*Group{}

	for _, sd := range subs {
		key := identityKey(sd)
		g, ok := byKey[key]
		if !ok {
			g = &Group{Key: key, Name: sd.Name}
			byKey[key] = g
			order = append(order, key)
		}
		g.SubDevices = append(g.SubDevices, sd)
	}

	out := make([]*Group, len(order))
	for i, key := range order {
		out[i] = byKey[key]
	}
	return out
}

func identityKey(sd *SubDevice) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%04x:%04x:%s", sd.ID.Vendor, sd.ID.Product, sd.Name)))
	return hex.EncodeToString(sum[:])[:16]
}
