package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/singleflight"

	"github.com/roostapp/roost-go/credstore"
)

// errRefreshRejected is the internal failure for any refresh attempt
// that did not yield a usable access token.
var errRefreshRejected = errors.New("refresh rejected")

// refresher issues the dedicated, unauthenticated POST to the refresh
// endpoint and persists the minted tokens. By default each failing
// request triggers its own refresh attempt; against a backend that
// rotates refresh tokens with single-use semantics that races, so an
// optional single-flight guard shares one in-flight refresh between all
// concurrent callers.
type refresher struct {
	endpoint   string
	httpClient *http.Client
	store      credstore.Store
	logger     *slog.Logger
	metrics    *Metrics

	singleFlight bool
	group        singleflight.Group
}

// refresh exchanges refreshToken for a new access token, persisting the
// access token (and the rotated refresh token, if the server issues one)
// before returning. Any transport error, non-2xx status, or malformed
// response is a refresh failure.
func (r *refresher) refresh(ctx context.Context, refreshToken string) (string, error) {
	if !r.singleFlight {
		return r.doRefresh(ctx, refreshToken)
	}
	token, err, _ := r.group.Do("refresh", func() (any, error) {
		return r.doRefresh(ctx, refreshToken)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (r *refresher) doRefresh(ctx context.Context, refreshToken string) (string, error) {
	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(markRefreshCall(ctx), http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.metrics.observeRefresh(false)
		return "", fmt.Errorf("%w: %w", errRefreshRejected, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.metrics.observeRefresh(false)
		return "", fmt.Errorf("%w: status %d", errRefreshRejected, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		r.metrics.observeRefresh(false)
		return "", fmt.Errorf("%w: %w", errRefreshRejected, err)
	}
	var payload refreshPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil || payload.AccessToken == "" {
		r.metrics.observeRefresh(false)
		return "", fmt.Errorf("%w: malformed response", errRefreshRejected)
	}

	if err := r.store.SetToken(payload.AccessToken); err != nil {
		r.metrics.observeRefresh(false)
		return "", fmt.Errorf("persisting refreshed token: %w", err)
	}
	if payload.RefreshToken != "" {
		if err := r.store.SetRefreshToken(payload.RefreshToken); err != nil {
			r.metrics.observeRefresh(false)
			return "", fmt.Errorf("persisting rotated refresh token: %w", err)
		}
		r.logger.Debug("refresh token rotated")
	}

	r.metrics.observeRefresh(true)
	return payload.AccessToken, nil
}
