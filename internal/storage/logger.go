package storage

import (
	"fmt"
	"log/slog"
	"strings"
)

// badgerLogger adapts slog to badger's Logger interface.
type badgerLogger struct {
	log *slog.Logger
}

func (b badgerLogger) Errorf(format string, args ...any) {
	b.log.Error(render(format, args))
}

func (b badgerLogger) Warningf(format string, args ...any) {
	b.log.Warn(render(format, args))
}

func (b badgerLogger) Infof(format string, args ...any) {
	b.log.Debug(render(format, args))
}

func (b badgerLogger) Debugf(format string, args ...any) {
	b.log.Debug(render(format, args))
}

func render(format string, args []any) string {
	return strings.TrimSuffix(fmt.Sprintf(format, args...), "\n")
}
