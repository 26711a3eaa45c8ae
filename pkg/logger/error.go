package logger

import (
	"fmt"
	"log/slog"

	"github.com/origins-network/sale-engine/pkg/logger/slogx"
)

// errorAttrReplacer expands wrapped errors into a verbose representation so
// cockroachdb/errors stack traces survive into the log output.
func errorAttrReplacer(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) > 0 || attr.Key != slogx.ErrorKey {
		return attr
	}
	err, ok := attr.Value.Any().(error)
	if !ok || err == nil {
		return attr
	}
	return slog.Group(slogx.ErrorKey,
		slog.String("message", err.Error()),
		slog.String("verbose", fmt.Sprintf("%+v", err)),
	)
}
