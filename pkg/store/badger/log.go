package badger

import (
	"fmt"
	"strings"

	"github.com/Hubmakerlabs/nostrbridge/pkg/slog"
)

// logger routes badger's internal logging to slog, prefixed with Label and
// limited to Level.
type logger struct {
	Level int
	Label string
}

func (l logger) Errorf(s string, i ...interface{}) {
	if l.Level >= slog.Error {
		s = l.Label + ": " + s
		txt := fmt.Sprintf(s, i...)
		log.E.Ln(strings.TrimSpace(txt))
	}
}

func (l logger) Warningf(s string, i ...interface{}) {
	if l.Level >= slog.Warn {
		s = l.Label + ": " + s
		txt := fmt.Sprintf(s, i...)
		log.W.F("%s", strings.TrimSpace(txt))
	}
}

func (l logger) Infof(s string, i ...interface{}) {
	if l.Level >= slog.Info {
		s = l.Label + ": " + s
		txt := fmt.Sprintf(s, i...)
		log.I.F("%s", strings.TrimSpace(txt))
	}
}

func (l logger) Debugf(s string, i ...interface{}) {
	if l.Level >= slog.Debug {
		s = l.Label + ": " + s
		txt := fmt.Sprintf(s, i...)
		log.D.F("%s", strings.TrimSpace(txt))
	}
}
