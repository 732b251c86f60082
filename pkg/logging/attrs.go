package logging

import (
	"log/slog"
	"math/big"
	"path/filepath"
)

func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.SourceKey:
		if source, ok := a.Value.Any().(*slog.Source); ok {
			source.File = filepath.Base(source.File)
		}
	case slog.LevelKey:
		level, ok := a.Value.Any().(slog.Level)
		if !ok {
			return a
		}
		switch level {
		case LevelTrace:
			a.Value = slog.StringValue("TRACE")
		case LevelAudit:
			a.Value = slog.StringValue("AUDIT")
		}
	}
	switch v := a.Value.Any().(type) {
	case error:
		a.Value = slog.StringValue(v.Error())
	case *big.Int:
		if v != nil {
			a.Value = slog.StringValue(v.Text(16))
		}
	}
	return a
}
