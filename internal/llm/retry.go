package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/graphloom/graphloom/internal/model"
)

// retrySleep is swapped out in tests.
var retrySleep = time.Sleep

const retryBaseDelay = time.Second

// errMalformedOutput marks generations that failed to parse or validate.
var errMalformedOutput = errors.New("malformed extraction output")

// apiError carries the HTTP status of a failed provider call so the retry
// classifier can tell rate limits and server errors from hard failures.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.status, e.body)
}

// extractWithRetries runs fn up to retries+1 times with exponential
// backoff, stopping early on non-retryable errors or parent cancellation.
func extractWithRetries(ctx context.Context, retries int, fn func(context.Context) (*model.Extraction, error)) (*model.Extraction, error) {
	if retries < 0 {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			retrySleep(retryBaseDelay << (attempt - 1))
		}

		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("extraction failed after %d attempts: %w", retries+1, lastErr)
}

// isRetryable classifies provider failures: rate limits, server errors,
// timeouts, transport failures and unparseable generations are worth
// another attempt. Parent cancellation is not; the loop surfaces it.
func isRetryable(err error) bool {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.status == http.StatusTooManyRequests || ae.status >= 500
	}
	var oe *openai.APIError
	if errors.As(err, &oe) {
		return oe.HTTPStatusCode == http.StatusTooManyRequests || oe.HTTPStatusCode >= 500
	}
	var re *openai.RequestError
	if errors.As(err, &re) {
		return re.HTTPStatusCode == http.StatusTooManyRequests || re.HTTPStatusCode >= 500
	}
	if errors.Is(err, errMalformedOutput) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var ue *url.Error
	return errors.As(err, &ue)
}
