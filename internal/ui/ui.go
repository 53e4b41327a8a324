package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	FriendsView ViewState = iota
	TrendsView
)

func (v ViewState) String() string {
	switch v {
	case FriendsView:
		return "Ouvindo agora"
	case TrendsView:
		return "Em alta"
	default:
		return ""
	}
}

// Listener runs polling rounds and reads the stored now-playing state of a user's friends.
type Listener interface {
	PollAll(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.RoundResult, error)
	Listening(userID string, limit int) ([]models.FriendListening, error)
}

// TrendSource lists the trending tracks.
type TrendSource interface {
	Trends(ctx context.Context) ([]models.TrendTrack, error)
}

// pollRound carries one polling round's progress channel and its outcome.
//
// result and err are written before progress is closed, so they are safe to read once the channel drains.
type pollRound struct {
	progress  chan tasks.ProgressUpdate
	result    *tasks.RoundResult
	err       error
	scheduled bool // the next tick is armed when the round ends
}

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	view        ViewState
	listener    Listener
	trends      TrendSource
	viewer      string
	limit       int
	interval    time.Duration
	width       int
	height      int
	friendList  list.Model
	trendList   list.Model
	round       *pollRound
	progress    tasks.ProgressUpdate
	result      *tasks.RoundResult
	lastRefresh time.Time
	err         error
	help        help.Model
	keys        keyMap
	now         func() time.Time
}

// NewModel creates a dashboard for viewer's friends.
//
// A polling round starts every interval; zero or less disables the automatic rounds.
func NewModel(ctx context.Context, listener Listener, trends TrendSource, viewer string, limit int, interval time.Duration) *Model {
	m := &Model{
		ctx:      ctx,
		view:     FriendsView,
		listener: listener,
		trends:   trends,
		viewer:   viewer,
		limit:    limit,
		interval: interval,
		help:     help.New(),
		keys:     newKeyMap(),
		now:      time.Now,
	}
	m.friendList = newList("Amigos ouvindo agora")
	m.trendList = newList("Músicas em alta")
	return m
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	return l
}

// Init loads both views and schedules the first polling round.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchFriends(), m.fetchTrends(), m.tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.friendList.SetSize(msg.Width-4, msg.Height-8)
		m.trendList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil
	case tea.KeyMsg:
		return m.handleKeys(msg)
	case Msg:
		return m.handleMsg(msg)
	}
	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgFriendsFetched:
		res := msg.data.(friendsResult)
		if res.err != nil {
			m.err = res.err
			return m, nil
		}
		m.err = nil
		m.lastRefresh = m.now()
		items := make([]list.Item, len(res.friends))
		for i, f := range res.friends {
			items[i] = newFriendItem(f, m.lastRefresh)
		}
		return m, m.friendList.SetItems(items)
	case MsgTrendsFetched:
		res := msg.data.(trendsResult)
		if res.err != nil {
			m.err = res.err
			return m, nil
		}
		items := make([]list.Item, len(res.tracks))
		for i, t := range res.tracks {
			items[i] = trendItem{rank: i + 1, track: t}
		}
		return m, m.trendList.SetItems(items)
	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, waitForProgress(m.round)
	case MsgRoundComplete:
		res := msg.data.(roundResult)
		scheduled := m.round != nil && m.round.scheduled
		m.round = nil
		m.result = res.result
		if res.err != nil {
			m.err = res.err
		}
		if scheduled {
			return m, tea.Batch(m.fetchFriends(), m.tick())
		}
		return m, m.fetchFriends()
	case MsgTick:
		if m.round != nil {
			m.round.scheduled = true
			return m, nil
		}
		cmd := m.startPoll()
		m.round.scheduled = true
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.activeList().FilterState() == list.Filtering {
		return m.updateList(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.tab):
		if m.view == FriendsView {
			m.view = TrendsView
		} else {
			m.view = FriendsView
		}
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		if m.view == TrendsView {
			return m, m.fetchTrends()
		}
		return m, m.fetchFriends()
	case key.Matches(msg, m.keys.poll):
		if m.round != nil {
			return m, nil
		}
		return m, m.startPoll()
	}
	return m.updateList(msg)
}

func (m *Model) activeList() *list.Model {
	if m.view == TrendsView {
		return &m.trendList
	}
	return &m.friendList
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case FriendsView:
		m.friendList, cmd = m.friendList.Update(msg)
	case TrendsView:
		m.trendList, cmd = m.trendList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchFriends() tea.Cmd {
	return func() tea.Msg {
		friends, err := m.listener.Listening(m.viewer, m.limit)
		return friendsFetchedMsg(friends, err)
	}
}

func (m *Model) fetchTrends() tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.trends.Trends(m.ctx)
		return trendsFetchedMsg(tracks, err)
	}
}

func (m *Model) tick() tea.Cmd {
	if m.interval <= 0 {
		return nil
	}
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) startPoll() tea.Cmd {
	round := &pollRound{progress: make(chan tasks.ProgressUpdate, 50)}
	m.round = round
	m.progress = tasks.ProgressUpdate{Message: "Starting polling round..."}

	go func() {
		round.result, round.err = m.listener.PollAll(m.ctx, round.progress)
		close(round.progress)
	}()

	return waitForProgress(round)
}

func waitForProgress(round *pollRound) tea.Cmd {
	return func() tea.Msg {
		if round == nil {
			return nil
		}
		update, ok := <-round.progress
		if !ok {
			return roundCompleteMsg(round.result, round.err)
		}
		return progressUpdateMsg(update)
	}
}

// View renders the tab bar, the active list, a status line and help.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")
	b.WriteString(m.activeList().View())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderTabs() string {
	tabs := make([]string, 0, 2)
	for _, v := range []ViewState{FriendsView, TrendsView} {
		if v == m.view {
			tabs = append(tabs, styles.activeTab.Render(v.String()))
		} else {
			tabs = append(tabs, styles.tab.Render(v.String()))
		}
	}
	return styles.title.Render("MusicBlah") + "  " + strings.Join(tabs, " ")
}

func (m *Model) renderStatus() string {
	switch {
	case m.err != nil:
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	case m.round != nil:
		if m.progress.Phase == tasks.PollFailed {
			return styles.warn.Render(m.progress.Message)
		}
		return styles.help.Render(m.progress.Message)
	case m.result != nil:
		return styles.ok.Render(fmt.Sprintf(
			"✓ %d of %d accounts playing (%d failed) • updated %s",
			m.result.Playing, m.result.Total, m.result.Failed, humanize.RelTime(m.lastRefresh, m.now(), "ago", "from now"),
		))
	case !m.lastRefresh.IsZero():
		return styles.help.Render("Updated " + humanize.RelTime(m.lastRefresh, m.now(), "ago", "from now"))
	default:
		return styles.help.Render("Loading...")
	}
}
