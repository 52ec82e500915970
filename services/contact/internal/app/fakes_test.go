package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"contactdesk/pkg/queue"
)

type fakeGenerator struct {
	mu     sync.Mutex
	text   string
	err    error
	panic  bool
	calls  int
	system string
	user   string
	// gate, when set, blocks GenerateText until it is closed.
	gate    chan struct{}
	entered chan struct{}
}

func (g *fakeGenerator) GenerateText(_ context.Context, system, user string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.system, g.user = system, user
	gate, entered := g.gate, g.entered
	g.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if g.panic {
		panic("generator exploded")
	}
	return g.text, g.err
}

func (g *fakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type recordingDispatcher struct {
	mu    sync.Mutex
	subs  []Submission
	err   error
	panic bool
}

func (d *recordingDispatcher) Dispatch(_ context.Context, sub Submission) error {
	if d.panic {
		panic("dispatcher exploded")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = append(d.subs, sub)
	return d.err
}

func (d *recordingDispatcher) Last() (Submission, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.subs) == 0 {
		return Submission{}, false
	}
	return d.subs[len(d.subs)-1], true
}

type fakeEnqueuer struct {
	kinds    []string
	payloads []string
	failOn   string
}

// EnqueueBatch is all-or-nothing: a batch containing failOn records nothing.
func (q *fakeEnqueuer) EnqueueBatch(_ context.Context, items []queue.BatchItem) ([]queue.Job, error) {
	for _, item := range items {
		if item.Kind == q.failOn {
			return nil, fmt.Errorf("enqueue %s: %w", item.Kind, errors.New("redis down"))
		}
	}
	jobs := make([]queue.Job, 0, len(items))
	for _, item := range items {
		q.kinds = append(q.kinds, item.Kind)
		q.payloads = append(q.payloads, item.Payload)
		jobs = append(jobs, queue.Job{ID: "job-" + item.Kind, Kind: item.Kind, Status: queue.StatusQueued})
	}
	return jobs, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
