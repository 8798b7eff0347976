package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	// CallbackPort is the port for the OAuth callback server
	CallbackPort = 8089
	// AuthTimeout is how long to wait for the user to complete auth
	AuthTimeout = 5 * time.Minute
)

// RedirectURL is the callback address registered with the Strava app
var RedirectURL = fmt.Sprintf("http://localhost:%d/callback", CallbackPort)

var (
	ErrStateMismatch = errors.New("state mismatch")
	ErrNoCode        = errors.New("no authorization code in callback")
	ErrTimeout       = errors.New("authentication timed out")
)

const successPage = `<!DOCTYPE html>
<html>
<head><title>zonetrends</title></head>
<body style="font-family: system-ui; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0;">
<div style="text-align: center;">
<h1 style="color: #10B981;">Account linked</h1>
<p>You can close this window and return to the terminal.</p>
</div>
</body>
</html>`

// Flow runs the authorization code flow against a local callback server
type Flow struct {
	Config  *oauth2.Config
	Addr    string        // listen address, defaults to :CallbackPort
	Timeout time.Duration // defaults to AuthTimeout
	Out     io.Writer     // where the login URL is printed
	Logger  *slog.Logger
}

// Authenticate prints the authorization URL, waits for Strava to redirect back
// and exchanges the code for a token.
func (f *Flow) Authenticate(ctx context.Context) (*Result, error) {
	addr := f.Addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", CallbackPort)
	}
	timeout := f.Timeout
	if timeout == 0 {
		timeout = AuthTimeout
	}
	logger := f.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	state := uuid.NewString()
	codes := make(chan string, 1)
	errs := make(chan error, 1)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("starting callback server: %w", err)
	}
	server := &http.Server{
		Handler:           CallbackHandler(state, codes, errs),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errs <- fmt.Errorf("callback server: %w", err):
			default:
			}
		}
	}()
	defer shutdownServer(server)

	if f.Out != nil {
		authURL := f.Config.AuthCodeURL(state, oauth2.AccessTypeOffline)
		fmt.Fprintln(f.Out)
		fmt.Fprintln(f.Out, "To link a Strava account, open this URL in your browser:")
		fmt.Fprintln(f.Out)
		fmt.Fprintf(f.Out, "  %s\n", authURL)
		fmt.Fprintln(f.Out)
		fmt.Fprintln(f.Out, "Waiting for authentication...")
	}
	logger.Debug("oauth_waiting", "addr", listener.Addr().String())

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var code string
	select {
	case code = <-codes:
	case err := <-errs:
		return nil, err
	case <-timer.C:
		return nil, fmt.Errorf("%w after %v", ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	token, err := f.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}

	result := &Result{Token: token, AthleteID: ExtractAthleteID(token)}
	logger.Info("oauth_complete", "athlete_id", result.AthleteID)
	return result, nil
}

// CallbackHandler serves /callback, delivering the first valid code to codes
// and any failure to errs. Both channels need a buffer of at least one.
func CallbackHandler(state string, codes chan<- string, errs chan<- error) http.Handler {
	report := func(err error) {
		select {
		case errs <- err:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			report(ErrStateMismatch)
			http.Error(w, "State mismatch", http.StatusBadRequest)
			return
		}
		if msg := q.Get("error"); msg != "" {
			report(fmt.Errorf("auth error: %s", msg))
			http.Error(w, "Authentication failed", http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			report(ErrNoCode)
			http.Error(w, "No authorization code", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, successPage)
		select {
		case codes <- code:
		default:
		}
	})
	return mux
}

// shutdownServer gracefully shuts down the HTTP server
func shutdownServer(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	server.Shutdown(ctx)
}
