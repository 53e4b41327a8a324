package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/musicblah/internal/models"
	"github.com/desertthunder/musicblah/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgFriendsFetched MsgKind = iota
	MsgTrendsFetched
	MsgProgressUpdate
	MsgRoundComplete
	MsgTick
)

type friendsResult struct {
	friends []models.FriendListening
	err     error
}

type trendsResult struct {
	tracks []models.TrendTrack
	err    error
}

type roundResult struct {
	result *tasks.RoundResult
	err    error
}

// friendsFetchedMsg is the constructor for [MsgFriendsFetched]
func friendsFetchedMsg(friends []models.FriendListening, err error) Msg {
	return Msg{kind: MsgFriendsFetched, data: friendsResult{friends, err}}
}

// trendsFetchedMsg is the constructor for [MsgTrendsFetched]
func trendsFetchedMsg(tracks []models.TrendTrack, err error) Msg {
	return Msg{kind: MsgTrendsFetched, data: trendsResult{tracks, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// roundCompleteMsg is the constructor for [MsgRoundComplete]
func roundCompleteMsg(result *tasks.RoundResult, err error) Msg {
	return Msg{kind: MsgRoundComplete, data: roundResult{result, err}}
}

// tickMsg is the constructor for [MsgTick]
func tickMsg(t time.Time) Msg {
	return Msg{kind: MsgTick, data: t}
}
