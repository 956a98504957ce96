package logger

import (
	"fmt"
	"io"
	"sync/atomic"

	echolog "github.com/labstack/gommon/log"
)

// EchoAdapter routes echo's internal logging (startup, listener errors,
// recovered panics) through a Logger.
//
//	e := echo.New()
//	e.Logger = logger.NewEchoAdapter(log.Module("echo"), echolog.WARN)
type EchoAdapter struct {
	log   Logger
	level atomic.Uint32
}

// NewEchoAdapter creates an adapter dropping messages below level
func NewEchoAdapter(log Logger, level echolog.Lvl) *EchoAdapter {
	if log == nil {
		log = NewDiscardLogger()
	}
	a := &EchoAdapter{log: log}
	a.level.Store(uint32(level))
	return a
}

func (a *EchoAdapter) enabled(level echolog.Lvl) bool {
	return level >= echolog.Lvl(a.level.Load())
}

func (a *EchoAdapter) emit(level echolog.Lvl, msg string, fields ...Field) {
	if !a.enabled(level) {
		return
	}
	switch level {
	case echolog.DEBUG:
		a.log.Debug(msg, fields...)
	case echolog.INFO:
		a.log.Info(msg, fields...)
	case echolog.WARN:
		a.log.Warn(msg, fields...)
	default:
		a.log.Error(msg, fields...)
	}
}

// Output is unused; the wrapped logger owns its writers.
func (a *EchoAdapter) Output() io.Writer     { return io.Discard }
func (a *EchoAdapter) SetOutput(_ io.Writer) {}
func (a *EchoAdapter) Prefix() string        { return "" }
func (a *EchoAdapter) SetPrefix(_ string)    {}
func (a *EchoAdapter) SetHeader(_ string)    {}

func (a *EchoAdapter) Level() echolog.Lvl         { return echolog.Lvl(a.level.Load()) }
func (a *EchoAdapter) SetLevel(level echolog.Lvl) { a.level.Store(uint32(level)) }

func (a *EchoAdapter) Print(i ...any)                 { a.emit(echolog.INFO, fmt.Sprint(i...)) }
func (a *EchoAdapter) Printf(format string, v ...any) { a.emit(echolog.INFO, fmt.Sprintf(format, v...)) }
func (a *EchoAdapter) Printj(j echolog.JSON)          { a.emit(echolog.INFO, "echo", Any("data", j)) }

func (a *EchoAdapter) Debug(i ...any)                 { a.emit(echolog.DEBUG, fmt.Sprint(i...)) }
func (a *EchoAdapter) Debugf(format string, v ...any) { a.emit(echolog.DEBUG, fmt.Sprintf(format, v...)) }
func (a *EchoAdapter) Debugj(j echolog.JSON)          { a.emit(echolog.DEBUG, "echo", Any("data", j)) }

func (a *EchoAdapter) Info(i ...any)                 { a.emit(echolog.INFO, fmt.Sprint(i...)) }
func (a *EchoAdapter) Infof(format string, v ...any) { a.emit(echolog.INFO, fmt.Sprintf(format, v...)) }
func (a *EchoAdapter) Infoj(j echolog.JSON)          { a.emit(echolog.INFO, "echo", Any("data", j)) }

func (a *EchoAdapter) Warn(i ...any)                 { a.emit(echolog.WARN, fmt.Sprint(i...)) }
func (a *EchoAdapter) Warnf(format string, v ...any) { a.emit(echolog.WARN, fmt.Sprintf(format, v...)) }
func (a *EchoAdapter) Warnj(j echolog.JSON)          { a.emit(echolog.WARN, "echo", Any("data", j)) }

func (a *EchoAdapter) Error(i ...any)                 { a.emit(echolog.ERROR, fmt.Sprint(i...)) }
func (a *EchoAdapter) Errorf(format string, v ...any) { a.emit(echolog.ERROR, fmt.Sprintf(format, v...)) }
func (a *EchoAdapter) Errorj(j echolog.JSON)          { a.emit(echolog.ERROR, "echo", Any("data", j)) }

// Fatal variants log and panic so the recover middleware or the caller's
// shutdown path runs instead of os.Exit.
func (a *EchoAdapter) Fatal(i ...any) { a.fatal(fmt.Sprint(i...)) }
func (a *EchoAdapter) Fatalf(format string, v ...any) {
	a.fatal(fmt.Sprintf(format, v...))
}
func (a *EchoAdapter) Fatalj(j echolog.JSON) { a.fatal(fmt.Sprintf("%v", j)) }

func (a *EchoAdapter) Panic(i ...any) { a.fatal(fmt.Sprint(i...)) }
func (a *EchoAdapter) Panicf(format string, v ...any) {
	a.fatal(fmt.Sprintf(format, v...))
}
func (a *EchoAdapter) Panicj(j echolog.JSON) { a.fatal(fmt.Sprintf("%v", j)) }

func (a *EchoAdapter) fatal(msg string) {
	a.log.Error(msg)
	panic("echo: " + msg)
}
