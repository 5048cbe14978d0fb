package sentry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Package-level sentry functions are swapped out through these variables
// in tests, since they cannot be mocked directly.
var (
	captureMessageFunc   = sentry.CaptureMessage
	captureExceptionFunc = sentry.CaptureException
	InitFunc             = sentry.Init
	FlushFunc            = sentry.Flush
	RecoverFunc          = sentry.Recover
)

type sentryTracker struct {
	flushFreq time.Duration
}

func (s *sentryTracker) CaptureMessage(message string) {
	captureMessageFunc(message)
}

func (s *sentryTracker) CaptureException(exception error) {
	captureExceptionFunc(exception)
}

func NewSentryTracker(dsn, env string, flushFreqSeconds int) (*sentryTracker, error) {
	if err := InitFunc(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
	}); err != nil {
		return nil, fmt.Errorf("unable to initialize sentry: %w", err)
	}
	defer FlushFunc(time.Second * time.Duration(flushFreqSeconds))
	defer RecoverFunc()
	return &sentryTracker{flushFreq: time.Second * time.Duration(flushFreqSeconds)}, nil
}
