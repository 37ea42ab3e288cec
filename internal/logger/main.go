// Package logger configures the process-wide zerolog output: console or
// rolling files split by severity, with a prometheus counter per level.
package logger

import (
	"io"
	"os"
	"path"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"
)

// levelWriter fans log lines out to one writer per severity band: trace,
// debug and info together, warn, and error and above.
type levelWriter struct {
	io.Writer
	trace io.Writer
	info  io.Writer
	warn  io.Writer
	err   io.Writer
}

// WriteLevel routes a line to the band's writer.
func (w *levelWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l == zerolog.Disabled {
		return 0, nil
	}

	switch {
	case l == zerolog.TraceLevel:
		return w.trace.Write(p) //nolint:wrapcheck
	case l == zerolog.WarnLevel:
		return w.warn.Write(p) //nolint:wrapcheck
	case l > zerolog.WarnLevel:
		return w.err.Write(p) //nolint:wrapcheck
	default:
		return w.info.Write(p) //nolint:wrapcheck
	}
}

// Init configures the global logger from the config. At least one of the
// console and file outputs should be enabled, otherwise nothing is written.
func Init(cfg Log) error {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrapf(err, "loglevel %s is not supported", cfg.LogLevel)
	}

	if cfg.ServiceName == "" {
		return ErrServiceNameIsEmpty
	}

	if cfg.AppName == "" {
		return ErrAppNameIsEmpty
	}

	zerolog.SetGlobalLevel(level)

	var writers []io.Writer

	if cfg.Console.Enabled {
		writers = append(writers, consoleWriter(cfg))
	}

	if cfg.File.Enabled {
		writers = append(writers, rollingFiles(cfg))
	}

	mw := zerolog.MultiLevelWriter(writers...)
	ctx := zerolog.New(mw).Hook(levelCounter(cfg.ServiceName)).With().Timestamp()

	// trace level carries error stacks for pkg/errors-wrapped causes
	stack := level == zerolog.TraceLevel
	if stack {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack //nolint:reassign
	}

	switch {
	case cfg.ReportCaller && stack:
		ctx = ctx.Stack()
	case cfg.ReportCaller:
		ctx = ctx.Caller()
	}

	log.Logger = ctx.Logger()

	return nil
}

// rollingFiles builds one size-capped lumberjack file per severity band
// under the configured directory.
func rollingFiles(cfg Log) io.Writer {
	file := cfg.File

	if err := os.MkdirAll(file.Path, 0o750); err != nil { //nolint:mnd
		log.Error().Err(err).Str("path", file.Path).Msg("cannot create log directory")

		return nil
	}

	roll := func(name string, maxSize, maxBackups, maxAge int) io.Writer {
		return &lumberjack.Logger{
			Filename:   path.Join(file.Path, name),
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			MaxAge:     maxAge,
		}
	}

	return &levelWriter{
		trace: roll(file.TraceLog, file.TraceMaxSize, file.TraceMaxBackups, file.TraceMaxAge),
		info:  roll(file.InfoLog, file.InfoMaxSize, file.InfoMaxBackups, file.InfoMaxAge),
		warn:  roll(file.WarnLog, file.WarnMaxSize, file.WarnMaxBackups, file.WarnMaxAge),
		err:   roll(file.ErrorLog, file.ErrorMaxSize, file.ErrorMaxBackups, file.ErrorMaxAge),
	}
}

// consoleWriter sends info to stdout and everything else to stderr,
// optionally through zerolog's pretty printer for interactive use.
func consoleWriter(cfg Log) io.Writer {
	stdout, stderr := io.Writer(os.Stdout), io.Writer(os.Stderr)

	if cfg.Console.UseConsoleWriter {
		stdout = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: zerolog.TimeFieldFormat}
		stderr = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: zerolog.TimeFieldFormat}
	}

	return &levelWriter{trace: stderr, info: stdout, warn: stderr, err: stderr}
}
