package sink

import (
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"
)

// HTTPSink posts the run record to the results API.
type HTTPSink struct {
	httpc  *resty.Client
	logger hclog.Logger
}

// NewHTTPSink builds the sink around the given resty client so retry and
// timeout behavior follows the http_client configuration. A nil client gets
// resty defaults.
func NewHTTPSink(logger hclog.Logger, httpc *resty.Client, url, token string) *HTTPSink {
	if httpc == nil {
		httpc = resty.New()
	}
	httpc.SetBaseURL(url)
	if token != "" {
		httpc.SetHeader("Authorization", fmt.Sprintf("Token %s", token))
	}

	return &HTTPSink{httpc: httpc, logger: logger}
}

func (s *HTTPSink) Deliver(record *RunRecord) error {
	resp, err := s.httpc.R().
		SetBody(record).
		Post(fmt.Sprintf("/api/v1/runs/%s/report", record.RunID))
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return fmt.Errorf("results API rejected report: %s", resp.Status())
	}

	s.logger.Info("report delivered", "runID", record.RunID, "status", resp.Status())
	return nil
}
