package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"partmix/internal/batch"
)

// progressView renders coordinator events to a terminal. In live mode it
// redraws a single status line from the coordinator snapshot; otherwise it
// prints one line per phase and per finished item so piped output stays
// readable.
type progressView struct {
	out   io.Writer
	live  bool
	title cases.Caser

	mu       sync.Mutex
	order    []string
	snapshot func() batch.Snapshot
	pending  bool
}

var _ batch.Observer = (*progressView)(nil)

func newProgressView(out io.Writer, names []string, live bool) *progressView {
	return &progressView{
		out:   out,
		live:  live,
		title: cases.Title(language.Und),
		order: append([]string(nil), names...),
	}
}

// follow sets the snapshot source the live line is drawn from.
func (v *progressView) follow(snapshot func() batch.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.snapshot = snapshot
}

func (v *progressView) PhaseChanged(state batch.State, label string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.breakLine()
	if label == "" || label == state.String() {
		fmt.Fprintln(v.out, v.title.String(state.String()))
		return
	}
	fmt.Fprintf(v.out, "%s: %s\n", v.title.String(state.String()), v.title.String(label))
}

func (v *progressView) ItemProgress(string, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.live && v.snapshot != nil {
		fmt.Fprintf(v.out, "\r\x1b[K%s", v.line())
		v.pending = true
	}
}

func (v *progressView) ItemCompleted(result batch.Result) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.live {
		fmt.Fprintf(v.out, "  done    %s\n", result.Name)
	}
}

func (v *progressView) ItemFailed(failure batch.Failure) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.breakLine()
	fmt.Fprintf(v.out, "  failed  %s: %v\n", failure.Name, failure.Err)
}

// finish terminates a pending live line.
func (v *progressView) finish() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.breakLine()
}

func (v *progressView) breakLine() {
	if v.pending {
		fmt.Fprintln(v.out)
		v.pending = false
	}
}

func (v *progressView) line() string {
	snap := v.snapshot()
	parts := make([]string, 0, len(v.order))
	for _, name := range v.order {
		parts = append(parts, fmt.Sprintf("%s %3d%%", name, snap.Progress[name]))
	}
	return fmt.Sprintf("[%3d%%] %s", snap.Overall, strings.Join(parts, " | "))
}
