package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/lavapop/campaign-service/environments"
	"github.com/lavapop/campaign-service/internal/domain"
	"github.com/lavapop/campaign-service/pkg/logger"
)

// Error is a send failure with its retryability classified. Permanent
// errors (invalid number, rejected payload) are recorded as final;
// transient ones (rate limit, gateway outage) are worth replaying.
type Error struct {
	StatusCode int
	Permanent  bool
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("gateway error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway error: %s", e.Message)
}

// IsPermanent reports whether err is a gateway error that will not
// succeed on retry. Unknown errors count as transient.
func IsPermanent(err error) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.Permanent
}

type Client struct {
	httpClient  *resty.Client
	gatewayURL  string
	fromAddress string
}

func NewClient(cfg environments.GatewayConfig) *Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(3).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			// Retry rate limits and server errors; a validation reject
			// will not change on replay.
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("x-lp-auth-key", cfg.AuthKey)

	return &Client{
		httpClient:  client,
		gatewayURL:  cfg.URL,
		fromAddress: cfg.FromAddress,
	}
}

// Send delivers one rendered message. A nil error means the gateway
// accepted the message and assigned a provider message ID.
func (c *Client) Send(ctx context.Context, toPhone, content string) (*domain.GatewayResponse, error) {
	payload := domain.GatewayRequest{
		To:      toPhone,
		From:    c.fromAddress,
		Content: content,
	}

	var gatewayResp domain.GatewayResponse

	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&gatewayResp).
		Post(c.gatewayURL)

	duration := time.Since(startTime)

	if err != nil {
		return nil, &Error{Permanent: false, Message: fmt.Sprintf("request failed: %v", err)}
	}

	logger.Debugf("Gateway request to %s completed in %v (status: %d)", c.gatewayURL, duration, resp.StatusCode())

	switch {
	case resp.StatusCode() == http.StatusAccepted:
		return &gatewayResp, nil
	case resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500:
		return nil, &Error{
			StatusCode: resp.StatusCode(),
			Permanent:  false,
			Message:    resp.String(),
		}
	default:
		return nil, &Error{
			StatusCode: resp.StatusCode(),
			Permanent:  true,
			Message:    resp.String(),
		}
	}
}

func (c *Client) GetURL() string {
	return c.gatewayURL
}
