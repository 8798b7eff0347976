package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// RefreshBuffer is how long before expiry a token is refreshed
const RefreshBuffer = 60 * time.Second

// ErrNoToken is returned when a TokenSource was built without a token
var ErrNoToken = errors.New("no token")

// RefreshFunc persists a token obtained by a refresh
type RefreshFunc func(*oauth2.Token) error

// TokenSource is an oauth2.TokenSource that refreshes ahead of expiry and
// hands every new token to onRefresh before using it.
type TokenSource struct {
	mu        sync.Mutex
	ctx       context.Context
	config    *oauth2.Config
	token     *oauth2.Token
	onRefresh RefreshFunc
}

// NewTokenSource wraps token. ctx is used for refresh requests and may carry
// an *http.Client under oauth2.HTTPClient.
func NewTokenSource(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token, onRefresh RefreshFunc) *TokenSource {
	return &TokenSource{
		ctx:       ctx,
		config:    cfg,
		token:     token,
		onRefresh: onRefresh,
	}
}

// Token returns a valid token, refreshing if necessary
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token == nil {
		return nil, ErrNoToken
	}
	if !needsRefresh(ts.token) {
		return ts.token, nil
	}

	// Expiry is cleared so the oauth2 package always performs the refresh
	stale := *ts.token
	stale.Expiry = time.Unix(1, 0)
	fresh, err := ts.config.TokenSource(ts.ctx, &stale).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}

	if ts.onRefresh != nil {
		if err := ts.onRefresh(fresh); err != nil {
			return nil, fmt.Errorf("saving refreshed token: %w", err)
		}
	}

	ts.token = fresh
	return fresh, nil
}

// Expiry returns the expiry of the current token without refreshing
func (ts *TokenSource) Expiry() time.Time {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.token == nil {
		return time.Time{}
	}
	return ts.token.Expiry
}

func needsRefresh(t *oauth2.Token) bool {
	if t.AccessToken == "" {
		return true
	}
	return time.Until(t.Expiry) <= RefreshBuffer
}
