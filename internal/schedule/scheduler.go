package schedule

import (
	"container/heap"
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/auraflow/auraflow/pkg/log"
)

type (
	// Scheduler runs delayed keyed tasks. Scheduling an existing key
	// replaces the pending task, so a key never fires twice
	Scheduler struct {
		now       Clock
		makeTimer TimerConstructor
		requests  chan request
	}

	// TaskFunc is called when its run time arrives
	TaskFunc func() error

	requestOp uint8

	request struct {
		op     requestOp
		task   *task
		key    string
		prefix string
	}

	task struct {
		fn    TaskFunc
		at    time.Time
		key   string
		index int
	}

	taskHeap struct {
		items []*task
		byKey map[string]*task
	}
)

const (
	opSchedule requestOp = iota
	opCancel
	opCancelPrefix
)

const requestBuffer = 64

// New creates a scheduler using the provided clock and timer constructor
func New(now Clock, makeTimer TimerConstructor) *Scheduler {
	return &Scheduler{
		now:       now,
		makeTimer: makeTimer,
		requests:  make(chan request, requestBuffer),
	}
}

// NewSystem creates a scheduler backed by the wall clock
func NewSystem() *Scheduler {
	return New(time.Now, NewTimer)
}

// Schedule enqueues a task to run after the provided delay, replacing
// any pending task with the same key
func (s *Scheduler) Schedule(
	ctx context.Context, key string, delay time.Duration, fn TaskFunc,
) {
	s.send(ctx, request{
		op:   opSchedule,
		task: &task{fn: fn, at: s.now().Add(delay), key: key},
	})
}

// Cancel removes the pending task registered for the exact key
func (s *Scheduler) Cancel(ctx context.Context, key string) {
	s.send(ctx, request{op: opCancel, key: key})
}

// CancelPrefix removes all pending tasks whose keys share the prefix
func (s *Scheduler) CancelPrefix(ctx context.Context, prefix string) {
	s.send(ctx, request{op: opCancelPrefix, prefix: prefix})
}

// Run processes scheduler requests until the context is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	timer := s.makeTimer(0)
	var timerCh <-chan time.Time
	tasks := newTaskHeap()

	resetTimer := func() {
		next := tasks.peek()
		if next == nil {
			timer.Stop()
			timerCh = nil
			return
		}
		timer.Reset(next.at.Sub(s.now()))
		timerCh = timer.Channel()
	}

	resetTimer()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case req := <-s.requests:
			switch req.op {
			case opSchedule:
				tasks.insert(req.task)
			case opCancel:
				tasks.cancel(req.key)
			case opCancelPrefix:
				tasks.cancelPrefix(req.prefix)
			}
			resetTimer()
		case <-timerCh:
			t := tasks.pop()
			if t != nil {
				if err := t.fn(); err != nil {
					slog.Error("Scheduled task failed",
						slog.String("task", t.key),
						log.Error(err))
				}
			}
			resetTimer()
		}
	}
}

func (s *Scheduler) send(ctx context.Context, req request) {
	select {
	case s.requests <- req:
	case <-ctx.Done():
	}
}

func newTaskHeap() *taskHeap {
	h := &taskHeap{byKey: map[string]*task{}}
	heap.Init(h)
	return h
}

func (h *taskHeap) insert(t *task) {
	if t == nil || t.fn == nil {
		return
	}
	if old, ok := h.byKey[t.key]; ok {
		old.fn = t.fn
		old.at = t.at
		heap.Fix(h, old.index)
		return
	}
	heap.Push(h, t)
}

func (h *taskHeap) pop() *task {
	if h.Len() == 0 {
		return nil
	}
	return heap.Pop(h).(*task)
}

func (h *taskHeap) peek() *task {
	if len(h.items) == 0 {
		return nil
	}
	return h.items[0]
}

func (h *taskHeap) cancel(key string) {
	t, ok := h.byKey[key]
	if !ok {
		return
	}
	heap.Remove(h, t.index)
}

func (h *taskHeap) cancelPrefix(prefix string) {
	var victims []*task
	for key, t := range h.byKey {
		if strings.HasPrefix(key, prefix) {
			victims = append(victims, t)
		}
	}
	for _, t := range victims {
		heap.Remove(h, t.index)
	}
}

func (h *taskHeap) Len() int { return len(h.items) }

func (h *taskHeap) Less(i, j int) bool {
	return h.items[i].at.Before(h.items[j].at)
}

func (h *taskHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

func (h *taskHeap) Push(x any) {
	t := x.(*task)
	t.index = len(h.items)
	h.items = append(h.items, t)
	h.byKey[t.key] = t
}

func (h *taskHeap) Pop() any {
	old := h.items
	n := len(old)
	if n == 0 {
		return nil
	}
	t := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	t.index = -1
	delete(h.byKey, t.key)
	return t
}
