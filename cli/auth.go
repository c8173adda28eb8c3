// ABOUTME: Gmail OAuth setup command
// ABOUTME: Runs the browser consent flow and stores the send token
package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/harperreed/warmer/config"
	"github.com/harperreed/warmer/delivery"
)

func NewAuthCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize delivery providers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "gmail",
		Short: "Authorize sending through Gmail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return gmailAuth(cmd, rootOpts)
		},
	})
	return cmd
}

func gmailAuth(cmd *cobra.Command, rootOpts *RootOptions) error {
	cfg := rootOpts.Config
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return fmt.Errorf("%w: GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required", config.ErrConfiguration)
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	oauthCfg := delivery.NewOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret)
	state, err := randomState()
	if err != nil {
		return err
	}

	// Start local server for OAuth callback
	tokenCh := make(chan *oauth2.Token, 1)
	errCh := make(chan error, 1)
	report := func(err error) {
		select {
		case errCh <- err:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			report(errors.New("state mismatch in OAuth callback"))
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "no authorization code", http.StatusBadRequest)
			report(errors.New("no authorization code received"))
			return
		}
		token, err := oauthCfg.Exchange(ctx, code)
		if err != nil {
			http.Error(w, "exchange failed", http.StatusInternalServerError)
			report(fmt.Errorf("failed to exchange code: %w", err))
			return
		}
		select {
		case tokenCh <- token:
		default:
		}
		_, _ = fmt.Fprintf(w, "Authorization successful! You can close this window.")
	})

	server := &http.Server{Addr: "localhost:8080", Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			report(err)
		}
	}()
	defer func() {
		_ = server.Shutdown(context.Background())
	}()

	authURL := oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, "Opening browser for Google OAuth...")
	_, _ = fmt.Fprintf(out, "\nIf browser doesn't open, visit this URL:\n%s\n\n", authURL)
	_ = openBrowser(authURL)

	select {
	case token := <-tokenCh:
		path := cfg.GmailToken()
		if err := delivery.SaveToken(path, token); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}
		_, _ = fmt.Fprintf(out, "✓ Authenticated successfully\n✓ Token saved to %s\n", path)
		return nil
	case err := <-errCh:
		return fmt.Errorf("OAuth flow failed: %w", err)
	case <-ctx.Done():
		return fmt.Errorf("OAuth flow failed: %w", ctx.Err())
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
