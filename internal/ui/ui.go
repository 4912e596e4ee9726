package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/unnipv/musync/internal/models"
	"github.com/unnipv/musync/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	ConfirmView
	ReconcileView
	ReportView
)

// PlaylistLister loads the local playlists with their connections.
type PlaylistLister interface {
	List(ctx context.Context) ([]models.Playlist, error)
}

// Reconciler runs one reconcile and reports progress on the channel it is given.
type Reconciler interface {
	Reconcile(ctx context.Context, playlistID string, platforms []models.Platform, progress chan<- tasks.ProgressUpdate) (*tasks.Report, error)
	Platforms() []models.Platform
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	view      ViewState
	lister    PlaylistLister
	engine    Reconciler
	platforms []models.Platform
	width     int
	height    int

	playlistList list.Model
	loaded       bool
	selected     *models.Playlist

	progressChan chan tasks.ProgressUpdate
	done         chan reconcileResult
	cancel       context.CancelFunc
	updates      map[models.Platform]tasks.ProgressUpdate
	order        []models.Platform
	status       string
	spinner      spinner.Model
	bar          progress.Model

	report *tasks.Report
	err    error
	help   help.Model
	keys   keyMap
}

// NewModel creates a TUI model. An empty platforms list reconciles every configured platform.
func NewModel(ctx context.Context, lister PlaylistLister, engine Reconciler, platforms []models.Platform) *Model {
	return &Model{
		ctx:       ctx,
		view:      PlaylistListView,
		lister:    lister,
		engine:    engine,
		platforms: platforms,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init loads the local playlists.
func (m *Model) Init() tea.Cmd {
	return m.fetchPlaylists()
}

// Err returns the error that ended the session, if any.
func (m *Model) Err() error {
	return m.err
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.loaded {
			m.playlistList.SetSize(m.listSize())
		}
		m.bar.Width = max(10, min(msg.Width-24, 60))
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ReconcileView:
			return m.handleReconcileKeys(msg)
		case ReportView:
			return m.handleReportKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != ReconcileView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistsLoaded:
		res := msg.data.(playlistsResult)
		if res.err != nil {
			m.err = res.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(res.playlists))
		for i, pl := range res.playlists {
			items[i] = playlistItem{playlist: pl}
		}
		m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.playlistList.Title = "Local Playlists"
		m.playlistList.SetSize(m.listSize())
		m.loaded = true
		m.view = PlaylistListView
		return m, nil

	case MsgProgressUpdate:
		m.record(msg.data.(tasks.ProgressUpdate))
		return m, waitForProgress(m.progressChan, m.done)

	case MsgReconcileComplete:
		res := msg.data.(reconcileResult)
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		m.progressChan, m.done = nil, nil
		m.report, m.err = res.report, res.err
		m.view = ReportView
		return m, nil
	}
	return m, nil
}

// record keeps the latest update per platform, in first-seen order.
func (m *Model) record(u tasks.ProgressUpdate) {
	if u.Platform == "" {
		m.status = u.Message
		return
	}
	if _, ok := m.updates[u.Platform]; !ok {
		m.order = append(m.order, u.Platform)
	}
	m.updates[u.Platform] = u
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ReportView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case ConfirmView:
		return m.renderConfirm()
	case ReconcileView:
		return m.renderReconcile()
	case ReportView:
		return m.renderReport()
	default:
		return ""
	}
}

func (m *Model) listSize() (int, int) {
	return max(m.width-4, 0), max(m.height-8, 0)
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.loaded {
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		return m, nil
	}
	if m.playlistList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.enter):
			if item, ok := m.playlistList.SelectedItem().(playlistItem); ok {
				pl := item.playlist
				m.selected = &pl
				m.view = ConfirmView
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = PlaylistListView
		return m, nil
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.yes):
		m.view = ReconcileView
		return m, m.startReconcile()
	}
	return m, nil
}

// handleReconcileKeys only honours quit, which cancels the run in flight.
func (m *Model) handleReconcileKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) {
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleReportKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.selected, m.report, m.err = nil, nil, nil
		return m, m.fetchPlaylists()
	}
	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != PlaylistListView || !m.loaded {
		return m, nil
	}
	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.lister.List(m.ctx)
		return playlistsLoadedMsg(playlists, err)
	}
}

// startReconcile runs the engine in the background. The goroutine hands its result over on done
// before closing the progress channel, so the model never reads state the goroutine writes.
func (m *Model) startReconcile() tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	progressChan := make(chan tasks.ProgressUpdate, 50)
	done := make(chan reconcileResult, 1)

	m.progressChan, m.done, m.cancel = progressChan, done, cancel
	m.updates = make(map[models.Platform]tasks.ProgressUpdate)
	m.order, m.status = nil, ""

	id, platforms := m.selected.ID, m.platforms
	go func() {
		report, err := m.engine.Reconcile(ctx, id, platforms, progressChan)
		done <- reconcileResult{report: report, err: err}
		close(progressChan)
	}()

	return tea.Batch(m.spinner.Tick, waitForProgress(progressChan, done))
}

func waitForProgress(progressChan <-chan tasks.ProgressUpdate, done <-chan reconcileResult) tea.Cmd {
	return func() tea.Msg {
		if progressChan == nil {
			return reconcileCompleteMsg(nil, nil)
		}
		if update, ok := <-progressChan; ok {
			return progressUpdateMsg(update)
		}
		res := <-done
		return reconcileCompleteMsg(res.report, res.err)
	}
}

func (m *Model) targets() []models.Platform {
	if len(m.platforms) > 0 {
		return m.platforms
	}
	return m.engine.Platforms()
}

func (m *Model) renderPlaylistList() string {
	if !m.loaded {
		return "Loading playlists..."
	}
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Reconcile '%s'?", m.selected.Name))

	var b strings.Builder
	for _, p := range m.targets() {
		line := "not connected, a playlist will be created"
		if conn := m.selected.Connection(p); conn != nil {
			line = fmt.Sprintf("%s (last status: %s)", conn.PlatformPlaylistID, conn.Status)
		}
		fmt.Fprintf(&b, "  %-8s %s\n", p, line)
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n%s", title, b.String(), helpView)
}

func (m *Model) renderReconcile() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(fmt.Sprintf("Reconciling '%s'", m.selected.Name)))
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(m.status + "\n")
	}

	for _, p := range m.order {
		u := m.updates[p]
		if r, ok := u.Data.(*tasks.PlatformReport); ok && u.Phase == tasks.Done {
			style, glyph := styles.outcome(r.Status)
			fmt.Fprintf(&b, "%s %-8s %s\n", style.Render(glyph), p, u.Message)
			continue
		}
		fmt.Fprintf(&b, "%s %-8s %s\n", m.spinner.View(), p, u.Message)
		if u.Phase == tasks.ApplyingChanges && u.Total > 0 {
			fmt.Fprintf(&b, "           %s %d/%d\n", m.bar.ViewAs(float64(u.Step)/float64(u.Total)), u.Step, u.Total)
		}
	}

	b.WriteString("\n" + m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	return b.String()
}

func (m *Model) renderReport() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Reconcile failed: %v", m.err)) + "\n\n" + helpView
	}
	if m.report == nil {
		return styles.err.Render("No report available") + "\n\n" + helpView
	}

	var b strings.Builder
	if m.report.OK() {
		b.WriteString(styles.title.Render(fmt.Sprintf("✓ '%s' is in sync", m.report.PlaylistName)))
	} else {
		b.WriteString(styles.title.Render(fmt.Sprintf("'%s' reconciled with issues", m.report.PlaylistName)))
	}
	b.WriteString("\n")

	for _, p := range m.report.Platforms() {
		r := m.report.PerPlatform[p]
		style, glyph := styles.outcome(r.Status)
		fmt.Fprintf(&b, "%s %-8s %s  matched %d, +%d added, %d imported, -%d removed\n",
			style.Render(glyph), p, style.Render(string(r.Status)), r.Matched, r.Added, r.Imported, r.Removed)
		if r.RemoteURL != "" {
			fmt.Fprintf(&b, "           %s\n", styles.help.Render(r.RemoteURL))
		}
		if r.Error != "" {
			fmt.Fprintf(&b, "           %s\n", styles.err.Render(r.Error))
		}
		if len(r.Unavailable) > 0 {
			fmt.Fprintf(&b, "           %s\n", styles.warn.Render(fmt.Sprintf("%d unavailable:", len(r.Unavailable))))
			for _, u := range r.Unavailable {
				fmt.Fprintf(&b, "             • %s - %s\n", u.Artist, u.Title)
			}
		}
	}

	return fmt.Sprintf("%s\n%s", b.String(), helpView)
}
