package infusionsoft

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// leveledZap adapts a zap logger to retryablehttp.LeveledLogger.
type leveledZap struct {
	inner *zap.SugaredLogger
}

// Error is logged at warn level since the request will be retried.
func (l leveledZap) Error(msg string, keysAndValues ...interface{}) {
	l.inner.Warnw(msg, keysAndValues...)
}

func (l leveledZap) Warn(msg string, keysAndValues ...interface{}) {
	l.inner.Warnw(msg, keysAndValues...)
}

func (l leveledZap) Info(msg string, keysAndValues ...interface{}) {
	l.inner.Infow(msg, keysAndValues...)
}

func (l leveledZap) Debug(msg string, keysAndValues ...interface{}) {
	l.inner.Debugw(msg, keysAndValues...)
}

// NewAPIHTTPClient returns an HTTP client for REST calls. It retries
// connection errors and 5xx responses (except 501) up to retryMax times.
func NewAPIHTTPClient(logger *zap.Logger, retryMax int, timeout time.Duration) *http.Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(leveledZap{logger.Sugar()})

	client := retryClient.StandardClient()
	client.Timeout = timeout
	return client
}
