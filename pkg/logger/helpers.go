package logger

import (
	"context"

	"github.com/rs/zerolog"
)

// LogItem logs the outcome of one profile reference with enough context
// to re-run it by hand.
func LogItem(l Logger, page, item int, url, outcome string, err error) {
	fields := map[string]interface{}{
		"page":    page,
		"item":    item,
		"url":     url,
		"outcome": outcome,
	}

	switch {
	case err != nil:
		l.WithError(err).WarnWithFields("Item not saved", fields)
	case outcome == "duplicate":
		l.InfoWithFields("Duplicate image skipped", fields)
	default:
		l.DebugWithFields("Item processed", fields)
	}
}

// LogCrawlSummary logs the final totals of a crawl
func LogCrawlSummary(l Logger, images, duplicates, skipped, pagesAttempted int) {
	l.InfoWithFields("Crawl finished", map[string]interface{}{
		"images":          images,
		"duplicates":      duplicates,
		"skipped":         skipped,
		"pages_attempted": pagesAttempted,
	})
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, settings map[string]interface{}) {
	l = l.WithField("component", component)
	if len(settings) > 0 {
		l = l.WithFields(settings)
	}
	l.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
