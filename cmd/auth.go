package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/unnipv/musync/internal/auth"
	"github.com/unnipv/musync/internal/models"
	"github.com/unnipv/musync/internal/server"
	"github.com/unnipv/musync/internal/shared"
)

const authTimeout = 2 * time.Minute

// AuthLogin runs the OAuth2 authorization code flow for one platform.
//
// Starts a local HTTP server on the redirect URI's host, opens the browser for consent, and stores the
// exchanged token in the database.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	platform, err := models.ParsePlatform(cmd.String("platform"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	oc, err := auth.OAuthConfig(platform, r.cfg())
	if err != nil {
		return err
	}
	if err := r.openStore(ctx); err != nil {
		return err
	}

	addr, err := callbackAddr(oc.RedirectURL, r.cfg().Server)
	if err != nil {
		return err
	}

	state, err := shared.GenerateState()
	if err != nil {
		return fmt.Errorf("failed to generate state token: %w", err)
	}

	handler := server.NewOAuthHandler(platform, oc, state)
	router := server.NewRouter(server.RouterOpts{Handlers: []server.Handler{handler}})

	srvCtx, stop := context.WithCancel(ctx)
	defer stop()
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Serve(srvCtx, addr, router, r.logger)
	}()

	authURL := handler.AuthCodeURL()
	r.writePlain("→ Opening browser for %s authorization...\n", platform)
	if err := r.openBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlain("⚠ Could not open browser automatically.\nPlease open this URL in your browser:\n%s\n\n", authURL)
	}

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = authTimeout
	}
	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		if err == nil {
			err = errors.New("server exited before callback")
		}
		return fmt.Errorf("callback server: %w", err)
	case <-timer.C:
		return fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	stop()
	if err := <-serverErrors; err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if err := result.Error(); err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}
	if result.Token == nil {
		return fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	source := auth.NewTokenSource(platform, oc, r.tokens, r.logger)
	if err := source.Save(ctx, result.Token); err != nil {
		return err
	}

	r.writePlain("✓ Authorization successful\n")
	r.writePlain("✓ %s token saved to %s\n", platform, r.cfg().Database.Path)
	return nil
}

// AuthStatus prints whether each platform has credentials configured and a token stored.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(ctx); err != nil {
		return err
	}

	for _, p := range models.Platforms {
		if _, err := auth.OAuthConfig(p, r.cfg()); err != nil {
			r.writePlain("%-8s  not configured\n", p)
			continue
		}

		token, err := r.tokens.LoadToken(ctx, p)
		switch {
		case errors.Is(err, auth.ErrNoToken):
			r.writePlain("%-8s  not logged in\n", p)
		case err != nil:
			return fmt.Errorf("failed to load %s token: %w", p, err)
		case token.RefreshToken != "":
			r.writePlain("%-8s  logged in (refreshable)\n", p)
		default:
			r.writePlain("%-8s  logged in (expires %s)\n", p, token.Expiry.Format(time.RFC3339))
		}
	}
	return nil
}

// callbackAddr is the listen address for the OAuth callback: the redirect URI's host:port,
// or the [server] section when the redirect URI has no port.
func callbackAddr(redirect string, sc shared.ServerConfig) (string, error) {
	u, err := url.Parse(redirect)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: redirect_uri %q", shared.ErrInvalidConfig, redirect)
	}
	if u.Port() != "" {
		return u.Host, nil
	}
	return net.JoinHostPort(sc.Host, strconv.Itoa(sc.Port)), nil
}
