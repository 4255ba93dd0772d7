// Package status renders the terminal progress line shown while a scan
// runs: percent complete, send rate, packets sent, and replies seen.
package status

import (
	"fmt"
	"io"
)

const (
	cursorHide = "\x1b[?25l"
	cursorShow = "\x1b[?25h"
	lineClear  = "\x1b[2K\r"
)

// Snapshot is a point-in-time read of the scan's atomic counters.
type Snapshot struct {
	Count uint64
	Sent  uint64
	Probe uint64
	Recv  uint64
}

// Line writes a single, repeatedly-overwritten progress line to w. A quiet
// Line renders nothing; Hide/Show still bracket the run so a caller can
// call them unconditionally.
type Line struct {
	w     io.Writer
	quiet bool
}

// New creates a Line writing to w. Rendering is suppressed entirely when
// quiet is true.
func New(w io.Writer, quiet bool) *Line {
	return &Line{w: w, quiet: quiet}
}

// Hide hides the terminal cursor for the duration of the scan.
func (l *Line) Hide() {
	if l.quiet {
		return
	}
	fmt.Fprint(l.w, cursorHide)
}

// Show restores the terminal cursor and clears the progress line.
func (l *Line) Show() {
	if l.quiet {
		return
	}
	fmt.Fprint(l.w, lineClear, cursorShow)
}

// Render overwrites the progress line with the current rate (in kpps,
// computed from the delta against prev taken ratePeriod ago) and counters.
func (l *Line) Render(cur, prev Snapshot, ratePeriodSeconds float64) {
	if l.quiet {
		return
	}

	var percent float64
	if cur.Count > 0 {
		percent = float64(cur.Probe) * 100 / float64(cur.Count)
	}

	var rateKpps float64
	if ratePeriodSeconds > 0 {
		rateKpps = float64(cur.Sent-prev.Sent) / ratePeriodSeconds / 1000
	}

	fmt.Fprintf(l.w, "%sProgress: %3.2f%% Rate: %3.2fkpps Sent: %d Replies: %d\r",
		lineClear, percent, rateKpps, cur.Sent, cur.Recv)
}

// RenderWaiting shows the post-completion straggler-wait countdown.
func (l *Line) RenderWaiting(secondsLeft uint64) {
	if l.quiet {
		return
	}
	fmt.Fprintf(l.w, "%sWaiting for %d seconds...\r", lineClear, secondsLeft)
}
