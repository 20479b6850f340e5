// Package producer implements the Event Producer (spec §4.2): one
// exclusive reader per sub-device, tagging each decoded event with its
// origin_hash and delivering it in order into the Handler Graph. Adapted
// from streamerbrainz's input_epoll.go: a single epoll loop multiplexes
// every sub-device's fd instead of one goroutine per device, the same
// "epoll over N blocking readers" shape, generalized from one fixed
// device list to whatever sub-devices a group currently has.
package producer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"inputinject/internal/device"
	"inputinject/internal/evcode"
	"inputinject/internal/everr"
)

// wireEvent mirrors struct input_event as read from /dev/input/eventN.
type wireEvent struct {
	Time  syscall.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

const wireEventSize = 24 // sizeof(struct input_event) on a 64-bit kernel

// Sink receives decoded, origin-tagged events in arrival order and is
// the Handler Graph's entry point. internal/handler.Graph implements it.
type Sink interface {
	Dispatch(ev evcode.Event) error
}

// handle is one grabbed sub-device: its open fd and the origin_hash
// tag every event read from it carries.
type handle struct {
	path   string
	origin string
	file   *os.File
}

// Pool grabs and reads every sub-device of one device group through a
// single epoll loop, delivering decoded events into a Sink in arrival
// order (spec §4.2: "reads events in kernel order... delivers them in
// order into the Handler Graph entry point").
type Pool struct {
	log  *slog.Logger
	sink Sink

	mu      sync.Mutex
	handles []*handle

	stop chan struct{}
	done chan struct{}
}

// NewPool builds an unopened Pool. Call Open to grab the group's
// sub-devices and Run to start delivering events.
func NewPool(log *slog.Logger, sink Sink) *Pool {
	return &Pool{log: log, sink: sink, stop: make(chan struct{}), done: make(chan struct{})}
}

// Open exclusively grabs every sub-device in grp (EVIOCGRAB), aborting
// and releasing any partial grabs if one fails (spec §4.1: "a single
// sub-device grab failure aborts the start and releases any partial
// grabs").
func (p *Pool) Open(grp *device.Group) error {
	if len(grp.SubDevices) == 0 {
		return everr.New(everr.NoDevicesFound, fmt.Sprintf("group %q has no sub-devices", grp.Key))
	}

	var opened []*handle
	for _, sd := range grp.SubDevices {
		f, err := os.OpenFile(sd.Path, os.O_RDWR, 0)
		if err != nil {
			releaseAll(opened)
			return everr.Wrap(everr.PermissionDenied, err, fmt.Sprintf("open %q", sd.Path))
		}
		if err := evcode.Ioctl(f.Fd(), evcode.EVIOCGRAB(), 1); err != nil {
			_ = f.Close()
			releaseAll(opened)
			return everr.Wrap(everr.PermissionDenied, err, fmt.Sprintf("grab %q", sd.Path))
		}
		opened = append(opened, &handle{path: sd.Path, origin: sd.OriginHash(), file: f})
	}

	p.mu.Lock()
	p.handles = opened
	p.mu.Unlock()
	return nil
}

func releaseAll(handles []*handle) {
	for _, h := range handles {
		_ = evcode.Ioctl(h.file.Fd(), evcode.EVIOCGRAB(), 0)
		_ = h.file.Close()
	}
}

// Close ungrabs and closes every sub-device this pool opened.
func (p *Pool) Close() {
	p.mu.Lock()
	handles := p.handles
	p.handles = nil
	p.mu.Unlock()
	releaseAll(handles)
}

// Stop signals the run loop to exit; it returns once the loop has
// observed the signal, within one poll tick (≤50ms, spec §4.2).
func (p *Pool) Stop() {
	close(p.stop)
	<-p.done
}

// Run drives the epoll loop until Stop is called or a device error makes
// continuing unsafe. Runtime errors are logged per spec §4.1 ("a
// producer's runtime error is logged and the producer is dropped; other
// producers continue") rather than propagated, since Run already covers
// every sub-device of the group in one loop.
func (p *Pool) Run() error {
	defer close(p.done)

	p.mu.Lock()
	handles := p.handles
	p.mu.Unlock()
	if len(handles) == 0 {
		return nil
	}

	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		p.log.Warn("epoll_create1 failed", "error", err)
		return everr.Wrap(everr.Fatal, err, "epoll_create1")
	}
	defer unix.Close(epfd)

	fdToHandle := make(map[int]*handle, len(handles))
	for _, h := range handles {
		fd := int(h.file.Fd())
		fdToHandle[fd] = h
		ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
			p.log.Warn("epoll_ctl add failed", "path", h.path, "error", err)
		}
	}

	const maxEvents = 32
	const pollTimeoutMs = 50 // spec §4.2: cancellation observed within ≤50ms
	epollEvents := make([]unix.EpollEvent, maxEvents)
	buf := make([]byte, wireEventSize)

	for {
		select {
		case <-p.stop:
			return nil
		default:
		}

		n, err := unix.EpollWait(epfd, epollEvents, pollTimeoutMs)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			p.log.Warn("epoll_wait failed", "error", err)
			return everr.Wrap(everr.TransientIO, err, "epoll_wait")
		}

		for i := 0; i < n; i++ {
			fd := int(epollEvents[i].Fd)
			h, ok := fdToHandle[fd]
			if !ok {
				continue
			}
			if epollEvents[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				p.log.Warn("sub-device error/hangup, dropping", "path", h.path)
				unix.EpollCtl(epfd, unix.EPOLL_CTL_DEL, fd, nil)
				delete(fdToHandle, fd)
				continue
			}

			if _, err := h.file.Read(buf); err != nil {
				p.log.Warn("read failed, dropping sub-device", "path", h.path, "error", err)
				unix.EpollCtl(epfd, unix.EPOLL_CTL_DEL, fd, nil)
				delete(fdToHandle, fd)
				continue
			}

			ev, ok := decode(buf, h.origin)
			if !ok {
				continue // malformed event, skip
			}
			if err := p.sink.Dispatch(ev); err != nil {
				p.log.Warn("dispatch failed", "error", err)
			}
		}
	}
}

func decode(buf []byte, origin string) (evcode.Event, bool) {
	var w wireEvent
	r := bytes.NewReader(buf)
	if err := binary.Read(r, binary.LittleEndian, &w); err != nil {
		return evcode.Event{}, false
	}
	return evcode.Event{Type: w.Type, Code: w.Code, Value: w.Value, Origin: origin}, true
}

// LED implements injcontext.LEDReader: the if_capslock/if_numlock macro
// nodes query this to read a group's keyboard LED state. It re-reads
// EVIOCGLED fresh each call rather than caching, since LED state can
// change from outside this injection (e.g. another process toggling
// capslock).
func (p *Pool) LED(code uint16) bool {
	p.mu.Lock()
	handles := p.handles
	p.mu.Unlock()

	var bits [(evcode.LedCnt + 7) / 8]byte
	for _, h := range handles {
		if evcode.IoctlPtr(h.file.Fd(), evcode.EVIOCGLED(), unsafe.Pointer(&bits)) == nil {
			byteIdx := code / 8
			bitIdx := code % 8
			if int(byteIdx) < len(bits) && bits[byteIdx]&(1<<bitIdx) != 0 {
				return true
			}
		}
	}
	return false
}
