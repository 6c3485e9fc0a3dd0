package app

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Logger is passed to every subsystem; component names the subsystem.
type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type NoopLogger struct{}

func (NoopLogger) Infof(component, format string, args ...interface{})  {}
func (NoopLogger) Errorf(component, format string, args ...interface{}) {}

// ZerologLogger adapts a zerolog.Logger to Logger.
type ZerologLogger struct{ log zerolog.Logger }

func NewZerologLogger(log zerolog.Logger) ZerologLogger { return ZerologLogger{log: log} }

func (l ZerologLogger) Infof(component string, format string, args ...interface{}) {
	l.log.Info().Str("component", component).Msg(fmt.Sprintf(format, args...))
}

func (l ZerologLogger) Errorf(component string, format string, args ...interface{}) {
	l.log.Error().Str("component", component).Msg(fmt.Sprintf(format, args...))
}

// Zerolog returns the underlying logger.
func (l ZerologLogger) Zerolog() zerolog.Logger { return l.log }

// NewConsoleLogger builds the process logger: human readable on a terminal,
// JSON otherwise. Extra writers (the debug log file) get JSON.
func NewConsoleLogger(out *os.File, level zerolog.Level, extra ...io.Writer) zerolog.Logger {
	var console io.Writer = out
	if isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()) {
		console = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	writers := append([]io.Writer{console}, extra...)
	return zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).With().Timestamp().Logger()
}
