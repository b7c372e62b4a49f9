// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"seedfast/credrelay/internal/progress"

	"atomicgo.dev/cursor"

	"github.com/pterm/pterm"
)

// liveFeed renders realtime updates from the compute module in a
// docker-compose-like area while an operation is in flight. Updates arrive
// deduplicated by id from the progress feed; the renderer keeps arrival
// order and repaints in place.
type liveFeed struct {
	working string

	mu           sync.Mutex
	order        []string
	updates      map[string]progress.Update
	frameIdx     int
	maxLineLen   int
	lastRendered string

	area      *pterm.AreaPrinter
	cancelSub func()
	spinStop  chan struct{}
	wg        sync.WaitGroup
}

// newLiveFeed creates a renderer with the given in-flight label.
func newLiveFeed(working string) *liveFeed {
	return &liveFeed{
		working:  working,
		updates:  make(map[string]progress.Update),
		spinStop: make(chan struct{}),
	}
}

// start subscribes to the feed and begins repainting. Call stop exactly once
// afterwards.
func (l *liveFeed) start(feed *progress.Feed) {
	sub, cancel := feed.Subscribe(16)
	l.cancelSub = cancel

	cursor.Hide()
	area, err := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if err != nil {
		cursor.Show()
		cancel()
		l.cancelSub = nil
		return
	}
	l.area = area

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		t := time.NewTicker(120 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case u := <-sub:
				l.handle(u)
				l.render()
			case <-t.C:
				l.mu.Lock()
				l.frameIdx++
				l.mu.Unlock()
				l.render()
			case <-l.spinStop:
				return
			}
		}
	}()
}

// handle records an update, keeping the original slot for a repeated id.
func (l *liveFeed) handle(u progress.Update) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.updates[u.ID]; !ok {
		l.order = append(l.order, u.ID)
	}
	l.updates[u.ID] = u
}

// render repaints the area. Lines are padded to the widest line seen so a
// shrinking repaint leaves no stale characters behind.
func (l *liveFeed) render() {
	if l.area == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	lines := make([]string, 0, len(l.order)+1)
	localMax := 0
	for _, id := range l.order {
		u := l.updates[id]
		line := updateGlyph(u.Level) + " " + updateText(u)
		if n := utf8.RuneCountInString(line); n > localMax {
			localMax = n
		}
		lines = append(lines, line)
	}
	if l.working != "" {
		line := brailleFrames[l.frameIdx%len(brailleFrames)] + " " + l.working
		if n := utf8.RuneCountInString(line); n > localMax {
			localMax = n
		}
		lines = append(lines, line)
	}
	if localMax > l.maxLineLen {
		l.maxLineLen = localMax
	}
	for i := range lines {
		if pad := l.maxLineLen - utf8.RuneCountInString(lines[i]); pad > 0 {
			lines[i] = lines[i] + strings.Repeat(" ", pad)
		}
	}
	text := strings.Join(lines, "\n")
	if text == l.lastRendered {
		return
	}
	l.lastRendered = text
	l.area.Update(text)
}

// stop tears the renderer down and removes the area from the terminal. The
// retained history stays on the feed for a post-run summary.
func (l *liveFeed) stop() {
	if l.cancelSub == nil {
		return
	}
	close(l.spinStop)
	l.wg.Wait()
	l.cancelSub()
	l.cancelSub = nil
	if l.area != nil {
		l.area.Stop()
		l.area = nil
	}
	cursor.Show()
}

func updateGlyph(level string) string {
	switch level {
	case progress.LevelWarning:
		return "!"
	case progress.LevelError:
		return "✗"
	default:
		return "•"
	}
}

func updateText(u progress.Update) string {
	if u.Step != "" && u.Message != "" {
		return u.Step + ": " + u.Message
	}
	if u.Step != "" {
		return u.Step
	}
	return u.Message
}
