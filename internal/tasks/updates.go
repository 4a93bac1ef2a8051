package tasks

import (
	"fmt"

	"github.com/desertthunder/songrelay/internal/formatter"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Failed  bool   // Set when the step did not succeed
}

// Operation phase enumeration
type Phase int

const (
	ListFolder Phase = iota
	PullSong
)

func (p Phase) String() string {
	switch p {
	case ListFolder:
		return "list_folder"
	case PullSong:
		return "pull_song"
	default:
		return ""
	}
}

func listFolderUpdate(folderID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ListFolder,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Listing folder %s...", folderID),
	}
}

func pullCompletedUpdate(step, total int, name string, bytes int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PullSong,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%s)", step, total, name, formatter.FormatBytes(bytes)),
	}
}

func pullFailedUpdate(step, total int, name, reason string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PullSong,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, name, reason),
		Failed:  true,
	}
}
