package google

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Authorize runs the installed-app flow against a loopback redirect.
// openURL is called with the consent URL and is expected to show it to the
// user; Authorize then waits for the redirect and exchanges the code.
func Authorize(ctx context.Context, conf *oauth2.Config, openURL func(string) error) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen for the OAuth redirect: %w", err)
	}

	c := *conf
	c.RedirectURL = "http://" + ln.Addr().String() + "/"

	state, err := randomState()
	if err != nil {
		_ = ln.Close()
		return nil, err
	}

	codes := make(chan string, 1)
	errs := make(chan error, 1)

	srv := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			switch {
			case q.Get("state") != state:
				http.Error(w, "state mismatch", http.StatusBadRequest)
				return
			case q.Get("error") != "":
				http.Error(w, "authorization failed: "+html.EscapeString(q.Get("error")), http.StatusBadRequest)
				select {
				case errs <- fmt.Errorf("authorization denied: %s", q.Get("error")):
				default:
				}
				return
			case q.Get("code") == "":
				http.Error(w, "missing code", http.StatusBadRequest)
				return
			}

			fmt.Fprintln(w, "Authorization complete. You can close this window.")
			select {
			case codes <- q.Get("code"):
			default:
			}
		}),
	}

	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := openURL(c.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)); err != nil {
		return nil, err
	}

	select {
	case code := <-codes:
		tok, err := c.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to exchange auth code: %w", err)
		}
		if tok.RefreshToken == "" {
			return nil, errors.New("no refresh token returned; revoke the app's access and authorize again")
		}
		return tok, nil
	case err := <-errs:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
