// Package platform talks to the external freelance payment platform: completed
// jobs, the team roster and bulk payment creation.
package platform

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL    = "https://api.freelance-platform.example/v1"
	userAgent = "linguaops/payrecon"
	// Max value for page size.
	perPage        = "100"
	defaultTimeout = 30 * time.Second
)

// Client is not retried: a failed call is returned as-is and the operator
// decides whether to trigger it again.
type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func New(logger *zap.Logger, token string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		token:  token,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}
