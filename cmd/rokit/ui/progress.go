// Package ui renders rokit's terminal-facing output: a per-tool
// download progress display (mpb bars on a TTY, plain log lines
// otherwise), and an interactive trust prompt (a small Bubble Tea
// program). Both are optional collaborators the core never imports
// directly — see internal/progress.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/rojo-rbx/rokit/internal/progress"
)

// IsTTY reports whether stdout is an interactive terminal, the switch
// rokit's commands use to pick between the bar-based and plain-text
// progress sinks.
func IsTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// ProgressSink renders batch-operation events to w: mpb bars when isTTY,
// or plain sequential lines otherwise.
type ProgressSink struct {
	mu    sync.Mutex
	w     io.Writer
	isTTY bool
	style *Style
	mp    *mpb.Progress
	bars  map[string]*mpb.Bar
}

// NewProgressSink returns a ProgressSink writing to w.
func NewProgressSink(w io.Writer, isTTY bool) *ProgressSink {
	s := &ProgressSink{w: w, isTTY: isTTY, style: NewStyle(), bars: make(map[string]*mpb.Bar)}
	if isTTY {
		s.mp = mpb.New(mpb.WithOutput(w), mpb.WithWidth(40))
	}
	return s
}

// Wait blocks until every in-flight bar has finished rendering.
func (s *ProgressSink) Wait() {
	if s.mp != nil {
		s.mp.Wait()
	}
}

// Progress implements progress.Sink.
func (s *ProgressSink) Progress(ev progress.Event) {
	switch ev.Kind {
	case progress.EventToolStart:
		s.start(ev)
	case progress.EventDownloadProgress:
		s.advance(ev)
	case progress.EventToolDone:
		s.finish(ev, nil)
	case progress.EventToolError:
		s.finish(ev, ev.Err)
	}
}

func (s *ProgressSink) start(ev progress.Event) {
	if !s.isTTY {
		fmt.Fprintf(s.w, "  %s installing...\n", s.style.Path.Sprint(ev.Alias))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	bar := s.mp.AddBar(0,
		mpb.BarFillerClearOnComplete(),
		mpb.PrependDecorators(
			decor.Name(ev.Alias, decor.WC{W: 16, C: decor.DindentRight}),
		),
		mpb.AppendDecorators(
			decor.CountersKibiByte("% .1f / % .1f"),
			decor.OnComplete(decor.Name(""), " done"),
		),
	)
	s.bars[ev.Alias] = bar
}

func (s *ProgressSink) advance(ev progress.Event) {
	if !s.isTTY {
		return
	}
	s.mu.Lock()
	bar, ok := s.bars[ev.Alias]
	s.mu.Unlock()
	if !ok {
		return
	}
	if ev.Total > 0 {
		bar.SetTotal(ev.Total, false)
	}
	bar.SetCurrent(ev.Done)
}

func (s *ProgressSink) finish(ev progress.Event, err error) {
	if s.isTTY {
		s.mu.Lock()
		if bar, ok := s.bars[ev.Alias]; ok {
			if err != nil {
				bar.Abort(true)
			} else {
				bar.SetTotal(bar.Current(), true)
			}
			delete(s.bars, ev.Alias)
		}
		s.mu.Unlock()
		if err == nil {
			return
		}
	}

	if err != nil {
		fmt.Fprintf(s.w, "  %s %s: %v\n", s.style.FailMark, ev.Alias, err)
		return
	}
	fmt.Fprintf(s.w, "  %s %s %s\n", s.style.SuccessMark, ev.Alias, ev.Spec)
}
