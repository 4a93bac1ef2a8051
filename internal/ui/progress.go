package ui

import (
	"fmt"
	"io"

	"github.com/desertthunder/songrelay/internal/tasks"
)

// PrintProgress writes each update to w as it arrives, until prog is closed.
//
// Failed steps are rendered with the warning style; everything else is plain.
func PrintProgress(w io.Writer, prog <-chan tasks.ProgressUpdate) {
	for u := range prog {
		line := u.Message
		switch {
		case u.Failed:
			line = Styles.Warn(line)
		case u.Phase == tasks.ListFolder:
			line = Styles.Help(line)
		}
		fmt.Fprintln(w, line)
	}
}
