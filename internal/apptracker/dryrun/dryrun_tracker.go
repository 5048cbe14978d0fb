package dryrun

import "github.com/sirupsen/logrus"

// DryRunTracker logs captured events instead of shipping them anywhere.
// Used when no error-tracking DSN is configured.
type DryRunTracker struct{}

func (d *DryRunTracker) CaptureMessage(message string) {
	logrus.WithField("tracker", "dryrun").Warn(message)
}

func (d *DryRunTracker) CaptureException(exception error) {
	logrus.WithField("tracker", "dryrun").WithError(exception).Error("captured exception")
}
