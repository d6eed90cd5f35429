package logstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const defaultTailInterval = 2 * time.Second

// Handle is a running tail. Stop is idempotent and blocks until the tail
// goroutine has exited, so callers can rely on the output writer not being
// touched afterwards.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Stop terminates the tail and waits for it to drain.
func (h *Handle) Stop() {
	h.once.Do(h.cancel)
	<-h.done
}

// Tail starts copying log lines emitted after from to out until the handle
// is stopped or ctx is cancelled. Query errors are transient by nature here
// (the tail is display-only) and end the current poll, not the tail.
func (c *Client) Tail(ctx context.Context, from time.Time, out io.Writer, interval time.Duration) (*Handle, error) {
	if out == nil {
		return nil, errors.New("logstream: tail writer must not be nil")
	}
	if interval <= 0 {
		interval = defaultTailInterval
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		next := from
		for {
			lines, resume, err := c.events(ctx, next)
			if err == nil {
				next = resume
				for _, line := range lines {
					fmt.Fprintln(out, strings.TrimRight(line, "\n"))
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return h, nil
}
