package tasks

import (
	"fmt"

	"github.com/desertthunder/musicblah/internal/models"
)

// ProgressUpdate represents a progress event during a polling round.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data, the [models.NowPlaying] of a polled user
}

// Operation phase enumeration
type Phase int

const (
	ListConnections Phase = iota
	PollUser
	RefreshToken
	PollFailed
	RoundComplete
)

func (p Phase) String() string {
	switch p {
	case ListConnections:
		return "list_connections"
	case PollUser:
		return "poll_user"
	case RefreshToken:
		return "refresh_token"
	case PollFailed:
		return "poll_failed"
	case RoundComplete:
		return "round_complete"
	default:
		return ""
	}
}

func listConnectionsUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ListConnections,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d connected accounts", total),
	}
}

func refreshTokenUpdate(userID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RefreshToken,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Refreshing Spotify token for %s...", userID),
	}
}

func pollUserUpdate(step, total int, userID string, np *models.NowPlaying) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] %s: nothing playing", step, total, userID)
	if np.HasTrack() {
		msg = fmt.Sprintf("[%d/%d] %s: %s - %s", step, total, userID, np.Track.Artist, np.Track.Name)
	}
	return ProgressUpdate{
		Phase:   PollUser,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    np,
	}
}

func pollFailedUpdate(step, total int, userID string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PollFailed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, userID, err),
	}
}

func roundCompleteUpdate(result *RoundResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RoundComplete,
		Step:    result.Total,
		Total:   result.Total,
		Message: fmt.Sprintf("Polled %d accounts: %d playing, %d failed", result.Total, result.Playing, result.Failed),
		Data:    result,
	}
}
