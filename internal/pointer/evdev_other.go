//go:build !linux

package pointer

import "context"

type evdevLogger interface {
	Infof(string, string, ...interface{})
	Errorf(string, string, ...interface{})
}

// StartEvdev is a no-op outside Linux.
func StartEvdev(ctx context.Context, logger evdevLogger, sink *ChannelSource, onExit func()) {
	if logger != nil {
		logger.Infof("input", "evdev input not supported on this platform")
	}
}
