//go:build linux

package system

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// KD console modes from linux/kd.h
const (
	kdText     = 0x00
	kdGraphics = 0x01
	kdSetMode  = 0x4B3A // KDSETMODE ioctl
)

// Active VT first, then the current virtual terminal.
var consolePaths = []string{"/dev/tty", "/dev/tty0"}

type logger interface {
	Infof(string, string, ...interface{})
	Errorf(string, string, ...interface{})
}

func setConsoleMode(mode int) error {
	var lastErr error
	for _, p := range consolePaths {
		fd, err := unix.Open(p, unix.O_RDONLY, 0)
		if err != nil {
			lastErr = fmt.Errorf("open %s: %w", p, err)
			continue
		}
		err = unix.IoctlSetInt(fd, kdSetMode, mode)
		_ = unix.Close(fd)
		if err != nil {
			lastErr = fmt.Errorf("KDSETMODE %d on %s: %w", mode, p, err)
			continue
		}
		return nil
	}
	if lastErr != nil {
		return lastErr
	}
	return fmt.Errorf("KDSETMODE %d failed: no console", mode)
}

// SetGraphicsMode switches the console to graphics mode so the kernel stops
// drawing its cursor and text over the comparison strip.
func SetGraphicsMode() error { return setConsoleMode(kdGraphics) }

// RestoreTextMode gives the console back to the kernel.
func RestoreTextMode() error { return setConsoleMode(kdText) }

// HideCursor writes the ANSI escape to hide the cursor to the active VT.
func HideCursor() error { return writeVT("\x1b[?25l") }
func ShowCursor() error { return writeVT("\x1b[?25h") }

func writeVT(s string) error {
	var lastErr error
	for _, p := range consolePaths {
		f, err := os.OpenFile(p, os.O_WRONLY, 0)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = f.WriteString(s)
		_ = f.Close()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return fmt.Errorf("write VT failed: %w", lastErr)
	}
	return fmt.Errorf("write VT failed: no console")
}

// PrepareConsole hides the cursor and enters graphics mode. The returned
// func undoes both; failures are logged, not returned, since the viewer
// still works on a noisy console.
func PrepareConsole(l logger) (restore func()) {
	logResult(l, "cursor hidden", HideCursor())
	logResult(l, "KD_GRAPHICS set", SetGraphicsMode())
	return func() {
		logResult(l, "KD_TEXT set", RestoreTextMode())
		logResult(l, "cursor shown", ShowCursor())
	}
}

func logResult(l logger, okMsg string, err error) {
	if l == nil {
		return
	}
	if err != nil {
		l.Errorf("tty", "%v", err)
		return
	}
	l.Infof("tty", "%s", okMsg)
}
