// Package api serves zone summaries as JSON for dashboards and scripts.
package api

import (
	"context"
	"crypto/subtle"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"zonetrends/internal/service"
	"zonetrends/internal/store"
)

// Summarizer builds zone summaries
type Summarizer interface {
	Summarize(ctx context.Context, account string, start, end time.Time) (*service.Summary, error)
}

// AccountLister lists stored accounts
type AccountLister interface {
	ListAccounts() ([]store.Account, error)
}

// Credentials enables HTTP basic auth when User is set
type Credentials struct {
	User     string
	Password string
}

// Deps holds everything the router needs
type Deps struct {
	Zones      Summarizer
	Accounts   AccountLister
	Metrics    http.Handler // served at /metrics when set
	Auth       Credentials
	WindowDays int
	Logger     *slog.Logger
	Now        func() time.Time
}

// NewRouter registers every route
func NewRouter(d Deps) *mux.Router {
	h := newHandler(d)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics).Methods(http.MethodGet)
	}

	apiRouter := r.PathPrefix("/api").Subrouter()
	if d.Auth.User != "" {
		apiRouter.Use(basicAuth(d.Auth))
	}
	apiRouter.HandleFunc("/accounts", h.listAccounts).Methods(http.MethodGet)
	apiRouter.HandleFunc("/accounts/{account}/zones", h.zoneSummary).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
	})
	return r
}

// NewServer wraps the router with access logging and panic recovery
func NewServer(addr string, router http.Handler, accessLog io.Writer) *http.Server {
	var h http.Handler = handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(router)
	if accessLog != nil {
		h = handlers.CombinedLoggingHandler(accessLog, h)
	}
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * time.Minute,
	}
}

func basicAuth(creds Credentials) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(user), []byte(creds.User)) != 1 ||
				subtle.ConstantTimeCompare([]byte(pass), []byte(creds.Password)) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="zonetrends"`)
				writeError(w, http.StatusUnauthorized, "unauthorized", "valid credentials required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
