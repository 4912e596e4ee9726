package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/unnipv/musync/internal/auth"
	"github.com/unnipv/musync/internal/models"
	"github.com/unnipv/musync/internal/quota"
	"github.com/unnipv/musync/internal/remote"
	"github.com/unnipv/musync/internal/services"
	"github.com/unnipv/musync/internal/shared"
	"github.com/unnipv/musync/internal/tasks"
)

// buildCatalogs returns one catalog per platform that has credentials. static holds bearer tokens
// passed on the command line; platforms without one use the stored OAuth token.
func (r *Runner) buildCatalogs(ctx context.Context, static map[models.Platform]string) ([]services.Catalog, error) {
	if r.catalogs != nil {
		return r.catalogs, nil
	}
	if err := r.openStore(ctx); err != nil {
		return nil, err
	}

	config := r.cfg()
	var catalogs []services.Catalog
	for _, p := range models.Platforms {
		creds, err := r.credentials(p, static[p])
		if errors.Is(err, shared.ErrMissingCredentials) {
			r.logger.Debug("platform not configured, skipping", "platform", p)
			continue
		}
		if err != nil {
			return nil, err
		}

		client := r.remoteClient(p)
		switch p {
		case models.PlatformSpotify:
			var opts []services.SpotifyOption
			if u := config.Credentials.Spotify.BaseURL; u != "" {
				opts = append(opts, services.WithSpotifyBaseURL(u))
			}
			catalogs = append(catalogs, services.NewSpotify(client, creds, opts...))
		case models.PlatformYouTube:
			var opts []services.YouTubeOption
			if u := config.Credentials.YouTube.BaseURL; u != "" {
				opts = append(opts, services.WithYouTubeBaseURL(u))
			}
			catalogs = append(catalogs, services.NewYouTube(client, creds, opts...))
		}
	}

	if len(catalogs) == 0 {
		return nil, fmt.Errorf("%w: no platform has credentials in config", shared.ErrMissingCredentials)
	}
	r.catalogs = catalogs
	return catalogs, nil
}

func (r *Runner) credentials(p models.Platform, static string) (services.Credentials, error) {
	if static != "" {
		return auth.Static(static), nil
	}
	oc, err := auth.OAuthConfig(p, r.cfg())
	if err != nil {
		return nil, err
	}
	return auth.NewTokenSource(p, oc, r.tokens, r.logger), nil
}

// remoteClient builds the resilient client for p from the [remote] and [quota.<platform>] config sections.
func (r *Runner) remoteClient(p models.Platform) *remote.Client {
	config := r.cfg()
	opts := []remote.Option{
		remote.WithHTTPClient(&http.Client{Timeout: config.Remote.Timeout(), Transport: r.httpClient.Transport}),
		remote.WithCache(remote.NewCache(config.Remote.CacheTTL())),
		remote.WithMaxRetries(config.Remote.MaxRetries),
		remote.WithMinBackoff(config.Remote.MinBackoff()),
		remote.WithLogger(r.logger),
	}
	if p == models.PlatformYouTube && config.Credentials.YouTube.APIKey != "" {
		opts = append(opts, remote.WithFallbackKey(config.Credentials.YouTube.APIKey))
	}
	return remote.New(string(p), r.quotaTracker(p), opts...)
}

func (r *Runner) quotaTracker(p models.Platform) *quota.Tracker {
	qc, ok := r.cfg().Quota[string(p)]
	if !ok {
		return quota.New(string(p))
	}
	costs := make(map[quota.OpType]int, len(qc.Costs))
	for op, units := range qc.Costs {
		costs[quota.OpType(op)] = units
	}
	return quota.New(string(p),
		quota.WithBudget(qc.DailyBudget),
		quota.WithSafetyThreshold(qc.SafetyThreshold),
		quota.WithCosts(costs),
	)
}

// newEngine applies the [sync] config section; flags can only switch behaviors on.
func (r *Runner) newEngine(catalogs []services.Catalog, removeExtra, parallel bool) *tasks.Engine {
	sc := r.cfg().Sync
	return tasks.NewEngine(r.playlists, catalogs,
		tasks.WithMatchThreshold(sc.MatchThreshold),
		tasks.WithGuardRatio(sc.RemovalGuardRatio),
		tasks.WithCallDelay(sc.CallDelay()),
		tasks.WithRunTimeout(sc.RunTimeout()),
		tasks.WithRemoveExtra(sc.RemoveExtra || removeExtra),
		tasks.WithParallel(sc.Parallel || parallel),
		tasks.WithLogger(r.logger),
	)
}
