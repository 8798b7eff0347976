package service

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"

	"zonetrends/internal/auth"
	"zonetrends/internal/store"
	"zonetrends/internal/strava"
)

// Clients builds one Strava client per stored account. All clients share a
// rate limiter because Strava meters requests per application.
type Clients struct {
	db      *store.DB
	oauth   *oauth2.Config
	limiter *strava.RateLimiter
	opts    []strava.Option

	mu      sync.Mutex
	clients map[string]*strava.Client
}

// NewClients creates a client source over the account store
func NewClients(db *store.DB, oauthCfg *oauth2.Config, opts ...strava.Option) *Clients {
	return &Clients{
		db:      db,
		oauth:   oauthCfg,
		limiter: strava.NewRateLimiter(),
		opts:    opts,
		clients: make(map[string]*strava.Client),
	}
}

// Fetcher returns the memoized client for account, creating it from the
// stored tokens on first use. Unknown accounts yield store.ErrAccountNotFound.
func (c *Clients) Fetcher(account string) (Fetcher, error) {
	return c.Client(account)
}

// Client is Fetcher with the concrete type
func (c *Clients) Client(account string) (*strava.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[account]; ok {
		return client, nil
	}

	acct, err := c.db.GetAccount(account)
	if err != nil {
		return nil, fmt.Errorf("loading account %s: %w", account, err)
	}

	token := &oauth2.Token{
		AccessToken:  acct.AccessToken,
		RefreshToken: acct.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       acct.ExpiresAt,
	}
	ts := auth.NewTokenSource(context.Background(), c.oauth, token, func(t *oauth2.Token) error {
		return c.db.UpdateTokens(account, t.AccessToken, t.RefreshToken, t.Expiry)
	})

	opts := append([]strava.Option{strava.WithRateLimiter(c.limiter)}, c.opts...)
	client := strava.NewClient(ts, opts...)
	c.clients[account] = client
	return client, nil
}

// Forget drops the memoized client for account, e.g. after it was removed
func (c *Clients) Forget(account string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.clients, account)
}
