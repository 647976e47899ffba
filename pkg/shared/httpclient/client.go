package httpclient

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/solguard-dev/solguard/pkg/shared/config"
)

// HclogAdapter adapts an hclog.Logger to the resty log.Logger interface.
type HclogAdapter struct {
	logger hclog.Logger
}

// NewHclogAdapter creates a new adapter that forwards messages to an hclog.Logger.
func NewHclogAdapter(logger hclog.Logger) resty.Logger {
	return &HclogAdapter{logger: logger}
}

// Errorf logs a message at error level.
func (a *HclogAdapter) Errorf(format string, v ...interface{}) {
	a.logger.Error(fmt.Sprintf(format, v...))
}

// Warnf logs a message at warning level.
func (a *HclogAdapter) Warnf(format string, v ...interface{}) {
	a.logger.Warn(fmt.Sprintf(format, v...))
}

// Debugf logs a message at debug level.
func (a *HclogAdapter) Debugf(format string, v ...interface{}) {
	a.logger.Debug(fmt.Sprintf(format, v...))
}

// NewRestyClient initializes a resty client from the http_client section of
// the configuration. Unset fields keep resty's defaults.
func NewRestyClient(logger hclog.Logger, cfg *config.Config) *resty.Client {
	client := resty.New()
	if logger != nil {
		client.SetLogger(NewHclogAdapter(logger))
	}
	if cfg == nil {
		return client
	}

	hc := cfg.HttpClient
	client.SetDebug(hc.Debug)
	if hc.RetryCount > 0 {
		client.SetRetryCount(hc.RetryCount)
	}
	if d, ok := parseDuration(logger, "retry_wait_time", hc.RetryWaitTime); ok {
		client.SetRetryWaitTime(d)
	}
	if d, ok := parseDuration(logger, "retry_max_wait_time", hc.RetryMaxWaitTime); ok {
		client.SetRetryMaxWaitTime(d)
	}
	if d, ok := parseDuration(logger, "timeout", hc.Timeout); ok {
		client.SetTimeout(d)
	}
	return client
}

func parseDuration(logger hclog.Logger, field, value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		if logger != nil {
			logger.Warn("invalid http_client duration, using default", "field", field, "value", value)
		}
		return 0, false
	}
	return d, true
}
