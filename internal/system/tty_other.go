//go:build !linux

package system

type logger interface {
	Infof(string, string, ...interface{})
	Errorf(string, string, ...interface{})
}

// PrepareConsole is a no-op where there is no Linux virtual console.
func PrepareConsole(l logger) (restore func()) {
	if l != nil {
		l.Infof("tty", "console control not supported on this platform")
	}
	return func() {}
}
