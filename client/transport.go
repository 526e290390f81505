package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/roostapp/roost-go/credstore"
)

// requestState tracks one original request through the recovery
// protocol. Transitions are strictly linear, which is what makes the
// at-most-one-retry invariant checkable: a request can only reach
// stateRetried once, and from stateRetried the only transition is to
// stateDone, whatever the retried response was.
type requestState int

const (
	stateSent requestState = iota
	stateAwaitingRefresh
	stateRetried
	stateDone
)

func (s requestState) String() string {
	switch s {
	case stateSent:
		return "sent"
	case stateAwaitingRefresh:
		return "awaiting-refresh"
	case stateRetried:
		return "retried"
	default:
		return "done"
	}
}

type ctxKey int

const refreshCallKey ctxKey = iota

// markRefreshCall flags a context as belonging to the refresh call
// itself so a 401 from the refresh endpoint is never recovered. This is
// the in-flight refresh marker: ephemeral, per-request, never persisted.
func markRefreshCall(ctx context.Context) context.Context {
	return context.WithValue(ctx, refreshCallKey, true)
}

func isRefreshCall(ctx context.Context) bool {
	v, _ := ctx.Value(refreshCallKey).(bool)
	return v
}

// maxBufferedErrorBody bounds how much of a 401 body is retained while
// recovery is attempted.
const maxBufferedErrorBody = 1 << 20

// authTransport attaches the stored access token to every outbound
// request and transparently recovers from exactly one class of failure:
// access-token expiry. Any non-401 response passes through unmodified.
type authTransport struct {
	base      http.RoundTripper
	store     credstore.Store
	refresher *refresher
	logger    *slog.Logger
	metrics   *Metrics

	// stateHook observes every requestState transition of the recovery
	// protocol. Nil outside tests.
	stateHook func(requestState)
}

func (t *authTransport) observeState(s requestState) {
	if t.stateHook != nil {
		t.stateHook(s)
	}
}

var _ http.RoundTripper = (*authTransport)(nil)

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	state := stateSent
	t.observeState(state)

	out, err := t.withAuth(req)
	if err != nil {
		return nil, err
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	t.metrics.observeRequest(req.Method, resp.StatusCode)

	if resp.StatusCode != http.StatusUnauthorized || isRefreshCall(req.Context()) {
		return resp, nil
	}

	// Recovery path. Preserve the original 401 body so it can still be
	// surfaced if recovery is abandoned.
	if err := bufferBody(resp); err != nil {
		return nil, err
	}
	state = stateAwaitingRefresh
	t.observeState(state)

	refreshToken, err := t.store.RefreshToken()
	if errors.Is(err, credstore.ErrNotFound) {
		// Nothing to recover with; propagate the original 401.
		return resp, nil
	}
	if err != nil {
		// Unreadable credential state is as unsafe as partial state:
		// clear everything and surface the original 401.
		t.logger.Error("reading refresh token failed, clearing session", "error", err)
		if cerr := t.store.Clear(); cerr != nil {
			t.logger.Error("clearing session after storage failure", "error", cerr)
		}
		return resp, nil
	}

	token, err := t.refresher.refresh(req.Context(), refreshToken)
	if err != nil {
		// The session is no longer recoverable: clear everything and
		// surface the original 401, not the refresh error.
		t.logger.Info("token refresh failed, clearing session", "error", err)
		if cerr := t.store.Clear(); cerr != nil {
			t.logger.Error("clearing session after failed refresh", "error", cerr)
		}
		return resp, nil
	}

	retry, ok := cloneForRetry(req, token, out.Header.Get("X-Request-ID"))
	if !ok {
		// The body cannot be replayed; the original 401 stands.
		return resp, nil
	}
	resp.Body.Close()
	state = stateRetried
	t.observeState(state)
	t.metrics.observeRetry()
	t.logger.Debug("replaying request after refresh",
		"method", req.Method, "url", req.URL.Path, "state", state.String())

	// The retried response is returned as-is; a second 401 is final.
	resp2, err := t.base.RoundTrip(retry)
	if err == nil {
		t.metrics.observeRequest(req.Method, resp2.StatusCode)
	}
	state = stateDone
	t.observeState(state)
	t.logger.Debug("request recovery finished",
		"method", req.Method, "url", req.URL.Path, "state", state.String())
	return resp2, err
}

// withAuth clones the request, tags it with a request ID, and attaches
// the stored access token as a bearer credential when one is present.
// Absence of a token is a valid state: the request proceeds
// unauthenticated.
func (t *authTransport) withAuth(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if out.Header.Get("X-Request-ID") == "" {
		out.Header.Set("X-Request-ID", uuid.NewString())
	}

	token, err := t.store.Token()
	switch {
	case errors.Is(err, credstore.ErrNotFound):
		return out, nil
	case err != nil:
		return nil, fmt.Errorf("reading access token: %w", err)
	}
	out.Header.Set("Authorization", "Bearer "+token)
	return out, nil
}

// cloneForRetry rebuilds the original request with a fresh body, the new
// access token, and the request ID of the first attempt so both attempts
// correlate in server logs. Requests whose body cannot be reproduced are
// not retried.
func cloneForRetry(req *http.Request, token, requestID string) (*http.Request, bool) {
	out := req.Clone(req.Context())
	if req.Body != nil {
		if req.GetBody == nil {
			return nil, false
		}
		body, err := req.GetBody()
		if err != nil {
			return nil, false
		}
		out.Body = body
	}
	out.Header.Set("Authorization", "Bearer "+token)
	if requestID != "" {
		out.Header.Set("X-Request-ID", requestID)
	}
	return out, true
}

// bufferBody replaces resp.Body with an in-memory copy so the response
// remains readable after the underlying connection is reused.
func bufferBody(resp *http.Response) error {
	if resp.Body == nil {
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBufferedErrorBody))
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("buffering response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return nil
}
