package slog

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/davecgh/go-spew/spew"
	"github.com/gookit/color"
)

func init() {
	if lvl, ok := LevelFromString(os.Getenv("GODEBUG")); ok {
		SetLogLevel(lvl)
		return
	}
	SetLogLevel(Info)
}

const (
	Off = iota
	Fatal
	Error
	Warn
	Info
	Debug
	Trace
)

type (
	// Ln prints lists of interfaces with spaces in between
	Ln func(a ...interface{})
	// F prints like fmt.Println surrounded by log details
	F func(format string, a ...interface{})
	// S prints a spew.Sdump for an interface slice
	S func(a ...interface{})
	// C accepts a function so that the extra computation can be avoided if it is
	// not being viewed
	C func(closure func() string)
	// Chk is a shortcut for printing if there is an error, or returning true
	Chk func(e error) bool
	// Err is a pass-through function that uses fmt.Errorf to construct an error
	// and returns the error after printing it to the log
	Err func(format string, a ...interface{}) error
	// LevelPrinter defines a set of terminal printing primitives that output
	// with the log level and code location.
	LevelPrinter struct {
		Ln
		F
		S
		C
		Chk
		Err
	}
	LevelSpec struct {
		ID        int
		Name      string
		Colorizer func(a ...interface{}) string
	}
)

var (
	currentLevel atomic.Int32
	// LevelSpecs specifies the id, string name and color-printing function
	LevelSpecs = []LevelSpec{
		{Off, "   ", color.Bit24(0, 0, 0, false).Sprint},
		{Fatal, "FTL", color.Bit24(128, 0, 0, false).Sprint},
		{Error, "ERR", color.Bit24(255, 0, 0, false).Sprint},
		{Warn, "WRN", color.Bit24(0, 255, 0, false).Sprint},
		{Info, "INF", color.Bit24(255, 255, 0, false).Sprint},
		{Debug, "DBG", color.Bit24(0, 125, 255, false).Sprint},
		{Trace, "TRC", color.Bit24(125, 0, 255, false).Sprint},
	}
)

// Log is a set of log printers for the various Level items.
type Log struct {
	F, E, W, I, D, T LevelPrinter
}

type Check struct {
	F, E, W, I, D, T Chk
}

// GetStd returns a logger writing to stderr.
func GetStd() (ll *Log) {
	ll, _ = New(os.Stderr)
	return
}

func JoinStrings(a ...any) (s string) {
	for i := range a {
		s += fmt.Sprint(a[i])
		if i < len(a)-1 {
			s += " "
		}
	}
	return
}

func enabled(l int32) bool { return l <= currentLevel.Load() }

func GetPrinter(l int32, writer io.Writer) LevelPrinter {
	out := func(text string) {
		if !enabled(l) {
			return
		}
		fmt.Fprintf(writer,
			"%s %s %s\n",
			LevelSpecs[l].Colorizer(LevelSpecs[l].Name),
			text,
			GetLoc(3),
		)
	}
	return LevelPrinter{
		Ln: func(a ...interface{}) { out(JoinStrings(a...)) },
		F: func(format string, a ...interface{}) {
			out(fmt.Sprintf(format, a...))
		},
		S: func(a ...interface{}) {
			if enabled(l) {
				out(spew.Sdump(a...))
			}
		},
		C: func(closure func() string) {
			if enabled(l) {
				out(closure())
			}
		},
		Chk: func(e error) bool {
			if e != nil {
				out(e.Error())
				return true
			}
			return false
		},
		Err: func(format string, a ...interface{}) error {
			err := fmt.Errorf(format, a...)
			out(err.Error())
			return err
		},
	}
}

// New creates a logger and checker that write to writer.
func New(writer io.Writer) (l *Log, c *Check) {
	l = &Log{
		F: GetPrinter(Fatal, writer),
		E: GetPrinter(Error, writer),
		W: GetPrinter(Warn, writer),
		I: GetPrinter(Info, writer),
		D: GetPrinter(Debug, writer),
		T: GetPrinter(Trace, writer),
	}
	c = &Check{
		F: l.F.Chk,
		E: l.E.Chk,
		W: l.W.Chk,
		I: l.I.Chk,
		D: l.D.Chk,
		T: l.T.Chk,
	}
	return
}

// SetLogLevel sets the process wide log level.
func SetLogLevel(l int) {
	if l < Off {
		l = Off
	}
	if l > Trace {
		l = Trace
	}
	currentLevel.Store(int32(l))
}

func GetLogLevel() (l int) {
	return int(currentLevel.Load())
}

// LevelFromString parses a level name. Names can be truncated down to one
// character, similar to nmcli's argument processor, as the first letter is
// unique.
func LevelFromString(s string) (l int, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return
	}
	switch s {
	case "1", "true", "on":
		return Debug, true
	case "0", "false":
		return Off, true
	}
	for _, name := range []struct {
		id   int
		name string
	}{
		{Off, "off"}, {Fatal, "fatal"}, {Error, "error"}, {Warn, "warn"},
		{Info, "info"}, {Debug, "debug"}, {Trace, "trace"},
	} {
		if strings.HasPrefix(name.name, s) {
			return name.id, true
		}
	}
	return
}

func GetLoc(skip int) (output string) {
	_, file, line, _ := runtime.Caller(skip)
	output = color.Bit24(0, 128, 255, false).Sprint(
		file, ":", line,
	)
	return
}
