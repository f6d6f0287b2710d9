package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// barWidth is the rendered width of the progress bar in characters.
const barWidth = 40

// Reporter renders a single-line progress bar that overwrites itself in
// place, with a completion percentage and the observed rate. It is safe
// for concurrent use; workers may call Update while the driving loop runs.
type Reporter struct {
	mu      sync.Mutex
	w       io.Writer
	total   int64
	current int64
	started time.Time
}

// NewReporter creates a progress reporter writing to w. A nil writer
// defaults to stderr, keeping the bar out of piped stdout.
func NewReporter(w io.Writer) *Reporter {
	if w == nil {
		w = os.Stderr
	}
	return &Reporter{w: w}
}

// Start resets the bar for a run of total items. A total below one
// disables rendering.
func (r *Reporter) Start(total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total = total
	r.current = 0
	r.started = time.Now()
	r.render()
}

// Update moves the bar to current completed items.
func (r *Reporter) Update(current int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = current
	r.render()
}

// Finish terminates the bar line at the last reported count. An
// interrupted run keeps its honest partial bar.
func (r *Reporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.render()
	if r.total > 0 {
		fmt.Fprintln(r.w)
	}
}

// render paints the bar. Callers must hold r.mu.
func (r *Reporter) render() {
	if r.total < 1 {
		return
	}

	percent := float64(r.current) / float64(r.total) * 100
	filled := int(barWidth * percent / 100)
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("=", filled) + strings.Repeat(".", barWidth-filled)

	rate := 0.0
	if elapsed := time.Since(r.started).Seconds(); elapsed > 0 {
		rate = float64(r.current) / elapsed
	}

	fmt.Fprintf(r.w, "\r[%s] %3.0f%% (%d/%d) %.0f req/s", bar, percent, r.current, r.total, rate)
}
