package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"counsel/pkg/client"
	"counsel/pkg/config"
	"counsel/pkg/logger"
	"counsel/pkg/metrics"

	"golang.org/x/time/rate"
)

const sendPath = "/emails"

type Email struct {
	To      string
	Subject string
	HTML    string
}

type Dispatcher interface {
	Send(ctx context.Context, email Email) error
}

// SendError is returned for a send the provider did not accept. Retryable
// marks failures worth another attempt: transport errors, throttling and
// provider-side errors.
type SendError struct {
	StatusCode int
	Retryable  bool
	Message    string
	Err        error
}

func (e *SendError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("email send failed: %s", e.Message)
	}
	return fmt.Sprintf("email send failed with status %d: %s", e.StatusCode, e.Message)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a SendError worth retrying.
func IsRetryable(err error) bool {
	var sendErr *SendError
	return errors.As(err, &sendErr) && sendErr.Retryable
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// ResendDispatcher sends through a Resend-compatible HTTP API, throttled to
// the provider's request rate.
type ResendDispatcher struct {
	client   *client.HttpClient
	from     string
	limiter  *rate.Limiter
	recorder metrics.Recorder
	log      *logger.Logger
}

func NewResendDispatcher(cfg *config.Config, recorder metrics.Recorder) *ResendDispatcher {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &ResendDispatcher{
		client:   client.NewHttpClient(cfg.EmailAPIURL, cfg.EmailAPITimeout).WithBearer(cfg.EmailAPIKey),
		from:     cfg.EmailFrom,
		limiter:  rate.NewLimiter(rate.Limit(cfg.EmailRateLimit), 1),
		recorder: recorder,
		log:      cfg.Log.Component("email"),
	}
}

func (d *ResendDispatcher) Send(ctx context.Context, email Email) error {
	if err := d.limiter.Wait(ctx); err != nil {
		d.recorder.EmailDispatched("throttled")
		return &SendError{Retryable: true, Message: "rate limiter wait aborted", Err: err}
	}

	resp, err := d.client.POST(ctx, sendPath, sendRequest{
		From:    d.from,
		To:      []string{email.To},
		Subject: email.Subject,
		HTML:    email.HTML,
	})
	if err != nil {
		d.recorder.EmailDispatched("transport_error")
		return &SendError{Retryable: true, Message: "provider unreachable", Err: err}
	}

	if !resp.IsSuccess() {
		sendErr := &SendError{
			StatusCode: resp.StatusCode,
			Retryable:  resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError,
			Message:    client.GetErrorMessage(resp),
		}
		if sendErr.Retryable {
			d.recorder.EmailDispatched("retryable_error")
		} else {
			d.recorder.EmailDispatched("rejected")
		}
		return sendErr
	}

	var accepted struct {
		ID string `json:"id"`
	}
	_ = resp.DecodeJSON(&accepted)

	d.recorder.EmailDispatched("sent")
	d.log.Info("Email sent", "provider_id", accepted.ID, "subject", email.Subject)
	return nil
}
