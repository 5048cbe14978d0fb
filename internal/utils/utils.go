package utils

import (
	"context"
	"io"

	log "github.com/sirupsen/logrus"
)

// DeferredClose closes the closer and logs a failure instead of
// returning it, for use in defer statements.
func DeferredClose(ctx context.Context, closer io.Closer, errMsg string) {
	if err := closer.Close(); err != nil {
		log.WithContext(ctx).WithError(err).Error(errMsg)
	}
}
