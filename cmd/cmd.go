// submodule cmd contains command definitions
package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
)

// setupCommand handles first-run setup of the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml template to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// playlistCommand manages local playlists.
func playlistCommand(r *Runner) *cli.Command {
	formatFlag := &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (text, json, markdown, csv)",
		Value:   "text",
	}

	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Local playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create an empty local playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Playlist name", Required: true},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Playlist description"},
				},
				Action: r.PlaylistCreate,
			},
			{
				Name:  "add",
				Usage: "Append a track to a local playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "playlist", Aliases: []string{"p"}, Usage: "Playlist ID", Required: true},
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Track title", Required: true},
					&cli.StringFlag{Name: "artist", Aliases: []string{"a"}, Usage: "Track artist", Required: true},
					&cli.StringFlag{Name: "album", Usage: "Album name"},
					&cli.IntFlag{Name: "duration", Usage: "Duration in seconds"},
					&cli.StringFlag{Name: "spotify-id", Usage: "Known Spotify track ID"},
					&cli.StringFlag{Name: "youtube-id", Usage: "Known YouTube video ID"},
				},
				Action: r.PlaylistAdd,
			},
			{
				Name:  "link",
				Usage: "Connect a local playlist to an existing remote playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "playlist", Aliases: []string{"p"}, Usage: "Playlist ID", Required: true},
					&cli.StringFlag{Name: "platform", Usage: "Platform (spotify, youtube)", Required: true},
					&cli.StringFlag{Name: "remote-id", Usage: "Remote playlist ID", Required: true},
				},
				Action: r.PlaylistLink,
			},
			{
				Name:   "list",
				Usage:  "List local playlists",
				Flags:  []cli.Flag{formatFlag},
				Action: r.PlaylistList,
			},
			{
				Name:  "show",
				Usage: "Show a playlist with its tracks and connections",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "playlist", Aliases: []string{"p"}, Usage: "Playlist ID", Required: true},
					formatFlag,
				},
				Action: r.PlaylistShow,
			},
		},
	}
}

// reconcileCommand syncs playlists against the remote platforms.
func reconcileCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "reconcile",
		Aliases: []string{"sync"},
		Usage:   "Reconcile local playlists with Spotify and YouTube",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "playlist",
				Aliases: []string{"p"},
				Usage:   "Playlist ID to reconcile (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Reconcile every local playlist",
			},
			&cli.StringSliceFlag{
				Name:  "platform",
				Usage: "Platform to reconcile (repeatable, default: all configured)",
			},
			&cli.BoolFlag{
				Name:  "remove-extra",
				Usage: "Remove remote tracks missing locally instead of importing them",
			},
			&cli.BoolFlag{
				Name:  "parallel",
				Usage: "Reconcile platforms concurrently",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent playlists with --all (max 5)",
				Value: 2,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Report format (text, json, markdown)",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "spotify-token",
				Usage:   "Static Spotify bearer token, skips stored OAuth tokens",
				Sources: cli.EnvVars("MUSYNC_SPOTIFY_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "youtube-token",
				Usage:   "Static YouTube bearer token, skips stored OAuth tokens",
				Sources: cli.EnvVars("MUSYNC_YOUTUBE_TOKEN"),
			},
		},
		Action: r.Reconcile,
	}
}

// tuiCommand runs the interactive reconcile UI.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Browse local playlists and reconcile one interactively",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "platform",
				Usage: "Platform to reconcile (repeatable, default: all configured)",
			},
			&cli.BoolFlag{
				Name:  "remove-extra",
				Usage: "Remove remote tracks missing locally instead of importing them",
			},
			&cli.BoolFlag{
				Name:  "parallel",
				Usage: "Reconcile platforms concurrently",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where logs go while the UI owns the terminal",
				Value: filepath.Join(os.TempDir(), "musync-tui.log"),
			},
			&cli.StringFlag{
				Name:    "spotify-token",
				Usage:   "Static Spotify bearer token, skips stored OAuth tokens",
				Sources: cli.EnvVars("MUSYNC_SPOTIFY_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "youtube-token",
				Usage:   "Static YouTube bearer token, skips stored OAuth tokens",
				Sources: cli.EnvVars("MUSYNC_YOUTUBE_TOKEN"),
			},
		},
		Action: r.TUI,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage platform authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize musync with a platform using OAuth2",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "platform", Usage: "Platform (spotify, youtube)", Required: true},
					&cli.DurationFlag{Name: "timeout", Usage: "How long to wait for the browser callback", Value: authTimeout},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show which platforms have a stored token",
				Action: r.AuthStatus,
			},
		},
	}
}

// serveCommand runs the HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the reconcile API and metrics over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (default: server.host:server.port from config)"},
		},
		Action: r.Serve,
	}
}
