package httpclient

import (
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"

	"github.com/solguard-dev/solguard/pkg/shared/config"
)

func TestNewRestyClientAppliesConfig(t *testing.T) {
	cfg := &config.Config{
		HttpClient: config.HttpClient{
			Debug:            true,
			RetryCount:       3,
			RetryWaitTime:    "250ms",
			RetryMaxWaitTime: "2s",
			Timeout:          "5s",
		},
	}

	client := NewRestyClient(hclog.NewNullLogger(), cfg)
	assert.True(t, client.Debug)
	assert.Equal(t, 3, client.RetryCount)
	assert.Equal(t, 250*time.Millisecond, client.RetryWaitTime)
	assert.Equal(t, 2*time.Second, client.RetryMaxWaitTime)
	assert.Equal(t, 5*time.Second, client.GetClient().Timeout)
}

func TestNewRestyClientTolerantOfBadValues(t *testing.T) {
	cfg := &config.Config{
		HttpClient: config.HttpClient{Timeout: "not-a-duration"},
	}

	client := NewRestyClient(hclog.NewNullLogger(), cfg)
	assert.Zero(t, client.GetClient().Timeout, "an unparseable duration keeps the default")

	assert.NotNil(t, NewRestyClient(nil, nil))
}
