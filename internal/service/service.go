// Package service validates requests from the HTTP layer, runs them against
// the market and its collaborators, and fans out notifications.
package service

import (
	"io"
	"log/slog"
)

func orDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}
