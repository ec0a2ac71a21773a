package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/ptoscano/intakebot/core/telegram/netutil"
)

// BuildHTTPClient returns the HTTP client used for Bot API calls. The
// webhook ack path never waits on these calls, so timeouts are tuned for
// outbound sends and deletes rather than update delivery.
func BuildHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &retryRoundTripper{
			base:     transport,
			attempts: 3,
			backoff:  2 * time.Second,
		},
	}
}

// retryRoundTripper replays transient network failures at the transport
// level. A request whose body cannot be rebuilt via GetBody is only ever
// attempted once.
type retryRoundTripper struct {
	base     http.RoundTripper
	attempts int
	backoff  time.Duration
}

func (t *retryRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	var lastErr error
	for attempt := 0; attempt <= t.attempts; attempt++ {
		attemptReq, replayable := rebuildRequest(req, attempt)
		if !replayable {
			return nil, lastErr
		}

		resp, err := base.RoundTrip(attemptReq)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !netutil.ShouldRetry(err) || attempt == t.attempts {
			break
		}
		if err := sleepBackoff(req, t.backoff*time.Duration(attempt+1)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// rebuildRequest returns the request to use for this attempt. Retries need
// a fresh body; without GetBody the request is not replayable.
func rebuildRequest(req *http.Request, attempt int) (*http.Request, bool) {
	if attempt == 0 {
		return req, true
	}
	clone := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, false
		}
		clone.Body = body
		return clone, true
	}
	if req.Body != nil {
		return nil, false
	}
	return clone, true
}

func sleepBackoff(req *http.Request, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-timer.C:
		return nil
	}
}
