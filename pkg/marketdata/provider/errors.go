package provider

import (
	"context"
	stderrors "errors"
	"net"
	"strings"

	"github.com/rxtech-lab/feedback-trader/pkg/errors"
)

var rateLimitHints = []string{"rate limit", "ratelimit", "rate-limit", "too many requests", "429"}

// classify maps a raw provider error to a coded error. Errors that already carry a code pass through.
func classify(source Source, symbol string, err error) error {
	if err == nil {
		return nil
	}

	if errors.GetCode(err) != errors.ErrCodeUnknown {
		return err
	}

	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrapf(errors.ErrCodeCanceled, err, "%s request for %s canceled", source, symbol)
	}

	if looksRateLimited(err.Error()) {
		return errors.Wrapf(errors.ErrCodeRateLimited, err, "%s rate limited request for %s", source, symbol)
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return errors.Wrapf(errors.ErrCodeNetworkError, err, "%s request for %s failed", source, symbol)
	}

	return errors.Wrapf(errors.ErrCodeAdapterInternal, err, "%s failed to fetch %s", source, symbol)
}

func looksRateLimited(message string) bool {
	message = strings.ToLower(message)

	for _, hint := range rateLimitHints {
		if strings.Contains(message, hint) {
			return true
		}
	}

	return false
}
