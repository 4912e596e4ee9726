package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/unnipv/musync/internal/models"
	"github.com/unnipv/musync/internal/repositories"
	"github.com/unnipv/musync/internal/shared"
	"github.com/unnipv/musync/internal/tasks"
)

// Reconciler runs a reconcile; *tasks.Engine implements it.
type Reconciler interface {
	Reconcile(ctx context.Context, playlistID string, platforms []models.Platform, progress chan<- tasks.ProgressUpdate) (*tasks.Report, error)
}

// PlaylistReader reads local playlists; *repositories.PlaylistRepository implements it.
type PlaylistReader interface {
	List(ctx context.Context) ([]models.Playlist, error)
	LoadPlaylist(ctx context.Context, id string) (*models.Playlist, error)
}

// API serves the JSON endpoints under /api.
type API struct {
	reconciler Reconciler
	playlists  PlaylistReader
	logger     *log.Logger
}

func NewAPI(reconciler Reconciler, playlists PlaylistReader, logger *log.Logger) *API {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &API{reconciler: reconciler, playlists: playlists, logger: logger}
}

// Routes registers the API on r.
func (a *API) Routes(r chi.Router) {
	r.Get("/playlists", a.listPlaylists)
	r.Get("/playlists/{id}", a.getPlaylist)
	r.Post("/playlists/{id}/reconcile", a.reconcile)
}

func (a *API) listPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := a.playlists.List(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}
	writeJSON(w, http.StatusOK, playlists)
}

func (a *API) getPlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, err := a.playlists.LoadPlaylist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

// reconcile always answers 200 with a per-platform report once the playlist is loaded,
// even when individual platforms failed.
func (a *API) reconcile(w http.ResponseWriter, r *http.Request) {
	platforms, err := parsePlatforms(r.URL.Query()["platform"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	report, err := a.reconciler.Reconcile(r.Context(), chi.URLParam(r, "id"), platforms, nil)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// parsePlatforms accepts repeated or comma-separated platform values.
func parsePlatforms(values []string) ([]models.Platform, error) {
	var out []models.Platform
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			p, err := models.ParsePlatform(part)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
			}
			out = append(out, p)
		}
	}
	return out, nil
}

type errorBody struct {
	Error string `json:"error"`
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repositories.ErrNotFound), errors.Is(err, shared.ErrPlaylistNotFound):
		status = http.StatusNotFound
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrInvalidArgument):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
