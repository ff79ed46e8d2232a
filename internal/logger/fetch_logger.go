// Package logger provides standings source logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// FetchLogger provides dedicated logging for standings and archive
// collection from the upstream source.
type FetchLogger struct {
	*logrus.Entry
}

// NewFetchLogger creates a new fetch logger.
func NewFetchLogger(baseLogger *logrus.Logger) *FetchLogger {
	return &FetchLogger{
		Entry: baseLogger.WithField("component", "standings"),
	}
}

// LogFetchStarted logs the start of one confederation fetch.
func (fl *FetchLogger) LogFetchStarted(confederation, url string) {
	fl.WithFields(logrus.Fields{
		"confederation": confederation,
		"url":           url,
	}).Debug("Standings fetch started")
}

// LogFetchCompleted logs a successful confederation fetch.
func (fl *FetchLogger) LogFetchCompleted(confederation string, rows int, checksum string, durationMs int64) {
	fl.WithFields(logrus.Fields{
		"confederation": confederation,
		"rows":          rows,
		"checksum":      checksum,
		"duration_ms":   durationMs,
	}).Info("Standings fetch completed")
}

// LogFetchFailed logs a confederation fetch that exhausted its retries.
func (fl *FetchLogger) LogFetchFailed(confederation string, attempts int, err error) {
	fl.WithFields(logrus.Fields{
		"confederation": confederation,
		"attempts":      attempts,
		"error":         err.Error(),
	}).Error("Standings fetch failed")
}

// LogBatchCollected logs the summary of a full collection cycle.
func (fl *FetchLogger) LogBatchCollected(totalRows, confederations int, failed []string, inputHash string) {
	fl.WithFields(logrus.Fields{
		"total_rows":            totalRows,
		"confederations":        confederations,
		"failed_confederations": failed,
		"input_hash":            inputHash,
	}).Info("Standings batch collected")
}
