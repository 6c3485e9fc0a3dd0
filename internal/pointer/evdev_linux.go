//go:build linux

package pointer

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Linux input-event-codes.h
const (
	evKey = 0x01
	evRel = 0x02

	relX    = 0x00
	btnLeft = 0x110
	keyF4   = 62
)

type evdevLogger interface {
	Infof(string, string, ...interface{})
	Errorf(string, string, ...interface{})
}

type rawEvent struct {
	typ   uint16
	code  uint16
	value int32
}

// tracker turns relative mouse motion into absolute pointer samples. Several
// devices may feed the same tracker.
type tracker struct {
	mu      sync.Mutex
	x       float64
	pressed bool
}

// handle returns the pointer event for raw, if any, and whether raw asks
// the process to exit.
func (t *tracker) handle(raw rawEvent, nowMs int64) (ev Event, ok bool, exit bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case raw.typ == evKey && raw.code == keyF4 && raw.value == 1:
		return Event{}, false, true
	case raw.typ == evKey && raw.code == btnLeft && raw.value == 1:
		t.pressed = true
		return Event{Kind: Down, X: t.x, TimeMs: nowMs}, true, false
	case raw.typ == evKey && raw.code == btnLeft && raw.value == 0:
		if !t.pressed {
			return Event{}, false, false
		}
		t.pressed = false
		return Event{Kind: Up, X: t.x, TimeMs: nowMs}, true, false
	case raw.typ == evRel && raw.code == relX:
		t.x += float64(raw.value)
		if t.pressed {
			return Event{Kind: Move, X: t.x, TimeMs: nowMs}, true, false
		}
	}
	return Event{}, false, false
}

// eventSize returns the size of struct input_event and its timeval prefix.
func eventSize() (size, tvSize int) {
	// input_event = timeval + u16 type + u16 code + s32 value.
	tvSize = binary.Size(unix.Timeval{})
	size = tvSize + 2 + 2 + 4
	if tvSize <= 0 {
		return 24, 16
	}
	return size, tvSize
}

func decodeEvents(buf []byte, size, tvSize int) []rawEvent {
	out := make([]rawEvent, 0, len(buf)/size)
	for off := 0; off+size <= len(buf); off += size {
		rec := buf[off : off+size]
		out = append(out, rawEvent{
			typ:   binary.LittleEndian.Uint16(rec[tvSize : tvSize+2]),
			code:  binary.LittleEndian.Uint16(rec[tvSize+2 : tvSize+4]),
			value: int32(binary.LittleEndian.Uint32(rec[tvSize+4 : tvSize+8])),
		})
	}
	return out
}

// StartEvdev watches /dev/input/event* and feeds mouse drags (left button
// plus horizontal motion) into sink. Pressing F4 calls onExit once.
//
// It is best-effort: if no input devices are available, it logs and returns.
func StartEvdev(ctx context.Context, logger evdevLogger, sink *ChannelSource, onExit func()) {
	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil || len(paths) == 0 {
		if logger != nil {
			logger.Infof("input", "no evdev devices found")
		}
		return
	}
	size, tvSize := eventSize()

	shared := &tracker{}
	var once sync.Once
	triggerExit := func() {
		once.Do(func() {
			if logger != nil {
				logger.Infof("input", "F4 pressed: exiting")
			}
			if onExit != nil {
				onExit()
			}
		})
	}

	for _, path := range paths {
		p := path
		go func() {
			fd, err := unix.Open(p, unix.O_RDONLY|unix.O_NONBLOCK, 0)
			if err != nil {
				return
			}
			f := os.NewFile(uintptr(fd), p)
			defer func() {
				_ = f.Close()
			}()

			buf := make([]byte, 64*size)
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				pollFds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
				if _, pollErr := unix.Poll(pollFds, 250); pollErr != nil {
					if pollErr == unix.EINTR {
						continue
					}
					// Device might have gone away.
					return
				}
				if pollFds[0].Revents&unix.POLLIN == 0 {
					continue
				}

				n, readErr := unix.Read(fd, buf)
				if readErr != nil {
					if readErr == unix.EAGAIN || readErr == unix.EINTR {
						continue
					}
					return
				}

				now := time.Now().UnixMilli()
				for _, raw := range decodeEvents(buf[:n], size, tvSize) {
					ev, ok, exit := shared.handle(raw, now)
					if exit {
						triggerExit()
						return
					}
					if ok && sink != nil {
						if err := sink.Push(ctx, ev); err != nil {
							return
						}
					}
				}
			}
		}()
	}
	if logger != nil {
		logger.Infof("input", "watching %d evdev devices", len(paths))
	}
}
