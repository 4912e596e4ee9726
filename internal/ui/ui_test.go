package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unnipv/musync/internal/models"
	"github.com/unnipv/musync/internal/tasks"
)

type fakeLister struct {
	playlists []models.Playlist
	err       error
	calls     int
}

func (f *fakeLister) List(context.Context) ([]models.Playlist, error) {
	f.calls++
	return f.playlists, f.err
}

// fakeReconciler emits updates, then returns report. With block set it waits for cancellation.
type fakeReconciler struct {
	updates   []tasks.ProgressUpdate
	report    *tasks.Report
	block     bool
	gotID     string
	platforms []models.Platform
}

func (f *fakeReconciler) Platforms() []models.Platform { return models.Platforms }

func (f *fakeReconciler) Reconcile(ctx context.Context, id string, platforms []models.Platform, progress chan<- tasks.ProgressUpdate) (*tasks.Report, error) {
	f.gotID, f.platforms = id, platforms
	for _, u := range f.updates {
		progress <- u
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.report, nil
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

// loadedModel returns a model that has received its playlists and a window size.
func loadedModel(t *testing.T, lister *fakeLister, rec *fakeReconciler, platforms []models.Platform) *Model {
	t.Helper()
	m := NewModel(context.Background(), lister, rec, platforms)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m.Update(m.Init()())
	if !m.loaded || m.view != PlaylistListView {
		t.Fatalf("playlists not loaded: view=%d err=%v", m.view, m.err)
	}
	return m
}

// drain feeds engine messages back into the model until the run completes.
func drain(m *Model) {
	for m.view == ReconcileView {
		m.Update(waitForProgress(m.progressChan, m.done)())
	}
}

func TestModel(t *testing.T) {
	mix := models.Playlist{
		ID:   "p1",
		Name: "Road Trip",
		Connections: map[models.Platform]*models.SyncState{
			models.PlatformSpotify: {Platform: models.PlatformSpotify, PlatformPlaylistID: "SP1", Status: models.SyncSynced},
		},
	}

	t.Run("reconciles the selected playlist and shows the report", func(t *testing.T) {
		spotify := &tasks.PlatformReport{
			Platform: models.PlatformSpotify,
			Status:   tasks.OutcomeSynced,
			Matched:  3,
			Added:    1,
			Unavailable: []tasks.UnavailableTrack{
				{Title: "Unreleased Demo", Artist: "Nobody", Reason: "not found"},
			},
		}
		rec := &fakeReconciler{
			updates: []tasks.ProgressUpdate{
				{Phase: tasks.Idle, Message: "Reconciling \"Road Trip\" on 1 platform(s)..."},
				{Platform: models.PlatformSpotify, Phase: tasks.ApplyingChanges, Step: 1, Total: 2, Message: "Searching Nobody - Unreleased Demo"},
				{Platform: models.PlatformSpotify, Phase: tasks.Done, Message: "spotify: synced", Data: spotify},
			},
			report: &tasks.Report{
				PlaylistID:   "p1",
				PlaylistName: "Road Trip",
				PerPlatform:  map[models.Platform]*tasks.PlatformReport{models.PlatformSpotify: spotify},
			},
		}
		lister := &fakeLister{playlists: []models.Playlist{mix}}
		m := loadedModel(t, lister, rec, []models.Platform{models.PlatformSpotify})

		if !strings.Contains(m.View(), "Road Trip") {
			t.Errorf("playlist list should show the playlist, got:\n%s", m.View())
		}

		m.Update(keyPress("enter"))
		if m.view != ConfirmView || m.selected == nil || m.selected.ID != "p1" {
			t.Fatalf("enter should confirm the selected playlist, view=%d", m.view)
		}
		if view := m.View(); !strings.Contains(view, "Reconcile 'Road Trip'?") || !strings.Contains(view, "SP1") {
			t.Errorf("confirm view = %s", view)
		}

		_, cmd := m.Update(keyPress("y"))
		if cmd == nil || m.view != ReconcileView {
			t.Fatalf("y should start the run, view=%d", m.view)
		}
		drain(m)

		if m.view != ReportView || m.report == nil || m.err != nil {
			t.Fatalf("expected report view, view=%d err=%v", m.view, m.err)
		}
		if rec.gotID != "p1" || len(rec.platforms) != 1 || rec.platforms[0] != models.PlatformSpotify {
			t.Errorf("reconciled %q on %v", rec.gotID, rec.platforms)
		}
		if m.status == "" || len(m.order) != 1 || m.updates[models.PlatformSpotify].Phase != tasks.Done {
			t.Errorf("progress not recorded: status=%q order=%v", m.status, m.order)
		}

		view := m.View()
		for _, want := range []string{"is in sync", "synced", "+1 added", "Nobody - Unreleased Demo"} {
			if !strings.Contains(view, want) {
				t.Errorf("report view missing %q:\n%s", want, view)
			}
		}

		_, cmd = m.Update(keyPress("r"))
		if cmd == nil {
			t.Fatal("r should reload playlists")
		}
		m.Update(cmd())
		if m.view != PlaylistListView || lister.calls != 2 {
			t.Errorf("r should reload playlists, view=%d calls=%d", m.view, lister.calls)
		}
	})

	t.Run("progress view renders per platform", func(t *testing.T) {
		m := loadedModel(t, &fakeLister{playlists: []models.Playlist{mix}}, &fakeReconciler{}, nil)
		m.Update(keyPress("enter"))
		m.view = ReconcileView
		m.updates = make(map[models.Platform]tasks.ProgressUpdate)
		m.record(tasks.ProgressUpdate{Platform: models.PlatformYouTube, Phase: tasks.ApplyingChanges, Step: 2, Total: 4, Message: "Adding 50 track(s)"})

		view := m.View()
		if !strings.Contains(view, "Adding 50 track(s)") || !strings.Contains(view, "2/4") {
			t.Errorf("progress view = %s", view)
		}
	})

	t.Run("confirm lists every configured platform when none requested", func(t *testing.T) {
		m := loadedModel(t, &fakeLister{playlists: []models.Playlist{mix}}, &fakeReconciler{}, nil)
		m.Update(keyPress("enter"))
		view := m.View()
		if !strings.Contains(view, "youtube") || !strings.Contains(view, "not connected") {
			t.Errorf("confirm view should list youtube as not connected:\n%s", view)
		}

		m.Update(keyPress("n"))
		if m.view != PlaylistListView {
			t.Errorf("n should go back, view=%d", m.view)
		}
	})

	t.Run("quit during a run cancels it", func(t *testing.T) {
		rec := &fakeReconciler{block: true}
		m := loadedModel(t, &fakeLister{playlists: []models.Playlist{mix}}, rec, nil)
		m.Update(keyPress("enter"))
		m.Update(keyPress("y"))

		_, cmd := m.Update(keyPress("q"))
		if !isQuit(cmd) {
			t.Fatal("q should quit")
		}
		drain(m)
		if !errors.Is(m.err, context.Canceled) {
			t.Errorf("expected cancelled run, got %v", m.err)
		}
		if !strings.Contains(m.View(), "Reconcile failed") {
			t.Errorf("report view = %s", m.View())
		}
	})

	t.Run("load failure quits with the error", func(t *testing.T) {
		m := NewModel(context.Background(), &fakeLister{err: errors.New("database is locked")}, &fakeReconciler{}, nil)
		_, cmd := m.Update(m.Init()())
		if !isQuit(cmd) {
			t.Error("load failure should quit")
		}
		if !strings.Contains(m.View(), "database is locked") {
			t.Errorf("view = %s", m.View())
		}
	})

	t.Run("keys before load only quit", func(t *testing.T) {
		m := NewModel(context.Background(), &fakeLister{}, &fakeReconciler{}, nil)
		if _, cmd := m.Update(keyPress("enter")); cmd != nil || m.view != PlaylistListView {
			t.Error("enter before load should do nothing")
		}
		if _, cmd := m.Update(keyPress("q")); !isQuit(cmd) {
			t.Error("q should quit before load")
		}
		if m.View() != "Loading playlists..." {
			t.Errorf("view = %q", m.View())
		}
	})
}

func TestPlaylistItem(t *testing.T) {
	item := playlistItem{playlist: models.Playlist{
		Name:        "Mix",
		Description: "loud",
		Connections: map[models.Platform]*models.SyncState{
			models.PlatformYouTube: {Status: models.SyncPartial},
			models.PlatformSpotify: {Status: models.SyncSynced},
		},
	}}
	if got := item.Description(); got != "spotify: synced, youtube: partial • loud" {
		t.Errorf("Description() = %q", got)
	}
	if got := (playlistItem{playlist: models.Playlist{Name: "Empty"}}).Description(); got != "not connected" {
		t.Errorf("Description() = %q", got)
	}
}
