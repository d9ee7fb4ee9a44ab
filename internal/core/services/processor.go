package services

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/semdex/internal/core/domain"
	"github.com/custodia-labs/semdex/internal/core/ports/driving"
	"github.com/custodia-labs/semdex/internal/logger"
)

// Ensure BackgroundProcessor implements the interface.
var _ driving.TaskManager = (*BackgroundProcessor)(nil)

// ProgressFunc reports task progress (0-100) with a message. It is
// invoked from the worker goroutine executing the task.
type ProgressFunc func(percent float64, message string)

// TaskFunc is the unit of work executed by a worker. Cancellation is
// cooperative: the function must poll ctx to honour CancelTask while
// running.
type TaskFunc func(ctx context.Context, progress ProgressFunc) (any, error)

// queueItem is one heap entry. seq preserves FIFO order within a
// priority level.
type queueItem struct {
	priority domain.TaskPriority
	seq      uint64
	id       string
}

// taskHeap orders items by priority (higher first), then submission order.
type taskHeap []queueItem

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(queueItem)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// BackgroundProcessor runs a fixed pool of workers draining a shared
// priority queue of named tasks. It owns the task registry and the
// subscriber list; there are no process-wide singletons.
type BackgroundProcessor struct {
	cfg domain.ProcessorConfig

	mu      sync.Mutex
	tasks   map[string]*domain.ProcessingTask
	fns     map[string]TaskFunc
	cancels map[string]context.CancelFunc
	queue   taskHeap
	seq     uint64
	stats   domain.ProcessorStats
	stopped bool

	// onDone is invoked after a task reaches a terminal state.
	onDone func(task domain.ProcessingTask)

	subMu   sync.Mutex
	subs    map[int]chan domain.ProgressUpdate
	nextSub int

	wake   chan struct{}
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewBackgroundProcessor creates a processor with the given configuration.
// Call Start to launch the worker pool.
func NewBackgroundProcessor(cfg domain.ProcessorConfig) *BackgroundProcessor {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 500 * time.Millisecond
	}
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = 64
	}

	return &BackgroundProcessor{
		cfg:     cfg,
		tasks:   make(map[string]*domain.ProcessingTask),
		fns:     make(map[string]TaskFunc),
		cancels: make(map[string]context.CancelFunc),
		subs:    make(map[int]chan domain.ProgressUpdate),
		wake:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}
}

// SetCompletionHook registers a callback invoked after every terminal
// transition, from the worker goroutine. Must be called before Start.
func (p *BackgroundProcessor) SetCompletionHook(hook func(task domain.ProcessingTask)) {
	p.onDone = hook
}

// Start launches the worker pool.
func (p *BackgroundProcessor) Start() {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	logger.Debug("Processor started with %d workers", p.cfg.Workers)
}

// Submit stores a Pending task and pushes it onto the priority queue.
// Returns the task ID.
func (p *BackgroundProcessor) Submit(
	fn TaskFunc, name, kind string, priority domain.TaskPriority, metadata map[string]any,
) (string, error) {
	if fn == nil {
		return "", domain.ErrInvalidInput
	}
	if !priority.IsValid() {
		priority = domain.PriorityNormal
	}

	task := &domain.ProcessingTask{
		ID:        uuid.New().String(),
		Name:      name,
		Kind:      kind,
		Priority:  priority,
		Status:    domain.TaskStatusPending,
		CreatedAt: time.Now(),
		Metadata:  metadata,
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return "", domain.ErrProcessorStopped
	}
	p.tasks[task.ID] = task
	p.fns[task.ID] = fn
	p.seq++
	heap.Push(&p.queue, queueItem{priority: priority, seq: p.seq, id: task.ID})
	p.stats.Submitted++
	p.mu.Unlock()

	p.publish(domain.ProgressUpdate{
		TaskID:  task.ID,
		Message: fmt.Sprintf("queued %s", name),
		Status:  domain.TaskStatusPending,
	})

	// Wake one idle worker.
	select {
	case p.wake <- struct{}{}:
	default:
	}

	return task.ID, nil
}

// worker is the main loop of one pool member. Pops use a short timeout
// so periodic maintenance can interleave; task failures never terminate
// the loop.
func (p *BackgroundProcessor) worker(n int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		if id, ok := p.pop(); ok {
			p.execute(id)
			continue
		}

		select {
		case <-p.stopCh:
			return
		case <-p.wake:
		case <-time.After(p.cfg.PollTimeout):
		}
	}
}

// pop removes the highest-priority pending task from the queue.
// Entries whose task was cancelled while pending are skipped.
func (p *BackgroundProcessor) pop() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.queue.Len() > 0 {
		item := heap.Pop(&p.queue).(queueItem)
		task, ok := p.tasks[item.id]
		if !ok || task.Status != domain.TaskStatusPending {
			continue
		}
		return item.id, true
	}
	return "", false
}

// execute runs one task to a terminal state.
func (p *BackgroundProcessor) execute(id string) {
	ctx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	task, ok := p.tasks[id]
	if !ok || task.Status != domain.TaskStatusPending {
		p.mu.Unlock()
		cancel()
		return
	}
	fn := p.fns[id]
	task.Status = domain.TaskStatusRunning
	task.StartedAt = time.Now()
	p.cancels[id] = cancel
	name := task.Name
	p.mu.Unlock()

	p.publish(domain.ProgressUpdate{
		TaskID:  id,
		Message: fmt.Sprintf("started %s", name),
		Status:  domain.TaskStatusRunning,
	})

	progress := func(percent float64, message string) {
		p.mu.Lock()
		if t, ok := p.tasks[id]; ok && t.Status == domain.TaskStatusRunning {
			t.Progress = percent
		}
		p.mu.Unlock()
		p.publish(domain.ProgressUpdate{
			TaskID:   id,
			Progress: percent,
			Message:  message,
			Status:   domain.TaskStatusRunning,
		})
	}

	result, err := p.runTask(ctx, fn, progress)
	cancel()

	p.mu.Lock()
	task = p.tasks[id]
	delete(p.cancels, id)
	delete(p.fns, id)
	task.CompletedAt = time.Now()

	var update domain.ProgressUpdate
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		task.Status = domain.TaskStatusCancelled
		task.ErrorMessage = err.Error()
		p.stats.Cancelled++
		update = domain.ProgressUpdate{
			TaskID: id, Progress: task.Progress,
			Message: fmt.Sprintf("cancelled %s", name),
			Status:  domain.TaskStatusCancelled,
		}
	case err != nil:
		task.Status = domain.TaskStatusFailed
		task.ErrorMessage = err.Error()
		p.stats.Failed++
		update = domain.ProgressUpdate{
			TaskID: id, Progress: task.Progress,
			Message: fmt.Sprintf("failed %s: %v", name, err),
			Status:  domain.TaskStatusFailed,
		}
	default:
		task.Status = domain.TaskStatusCompleted
		task.Progress = 100
		task.Result = result
		p.stats.Completed++
		p.stats.TotalDuration += task.Duration()
		p.stats.AverageDuration = p.stats.TotalDuration / time.Duration(p.stats.Completed)
		update = domain.ProgressUpdate{
			TaskID: id, Progress: 100,
			Message: fmt.Sprintf("completed %s", name),
			Status:  domain.TaskStatusCompleted,
		}
	}
	done := *task
	p.mu.Unlock()

	p.publish(update)

	if p.onDone != nil {
		p.onDone(done)
	}
}

// runTask invokes the task function, converting panics into errors so a
// misbehaving task cannot kill the worker.
func (p *BackgroundProcessor) runTask(
	ctx context.Context, fn TaskFunc, progress ProgressFunc,
) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return fn(ctx, progress)
}

// Cancel requests cancellation of a task. Pending tasks transition to
// Cancelled immediately and their function is never invoked; Running
// tasks get their context cancelled, which only takes effect if the
// task function polls it.
func (p *BackgroundProcessor) Cancel(id string) bool {
	p.mu.Lock()
	task, ok := p.tasks[id]
	if !ok {
		p.mu.Unlock()
		return false
	}

	switch task.Status {
	case domain.TaskStatusPending:
		task.Status = domain.TaskStatusCancelled
		task.CompletedAt = time.Now()
		delete(p.fns, id)
		p.stats.Cancelled++
		done := *task
		name := task.Name
		p.mu.Unlock()

		p.publish(domain.ProgressUpdate{
			TaskID:  id,
			Message: fmt.Sprintf("cancelled %s", name),
			Status:  domain.TaskStatusCancelled,
		})
		if p.onDone != nil {
			p.onDone(done)
		}
		return true

	case domain.TaskStatusRunning:
		cancel, hasCancel := p.cancels[id]
		p.mu.Unlock()
		if hasCancel {
			cancel()
		}
		return hasCancel

	default:
		p.mu.Unlock()
		return false
	}
}

// Task returns a task snapshot by ID.
func (p *BackgroundProcessor) Task(id string) (domain.ProcessingTask, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	task, ok := p.tasks[id]
	if !ok {
		return domain.ProcessingTask{}, domain.ErrTaskNotFound
	}
	return *task, nil
}

// Tasks returns a snapshot of all retained tasks.
func (p *BackgroundProcessor) Tasks() []domain.ProcessingTask {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.ProcessingTask, 0, len(p.tasks))
	for _, task := range p.tasks {
		out = append(out, *task)
	}
	return out
}

// Stats returns aggregate statistics.
func (p *BackgroundProcessor) Stats() domain.ProcessorStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// RunningCount returns the number of tasks currently executing.
func (p *BackgroundProcessor) RunningCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for _, task := range p.tasks {
		if task.Status == domain.TaskStatusRunning {
			count++
		}
	}
	return count
}

// CleanupOldTasks evicts terminal tasks older than maxAge.
func (p *BackgroundProcessor) CleanupOldTasks(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	p.mu.Lock()
	defer p.mu.Unlock()
	removed := 0
	for id, task := range p.tasks {
		if task.Status.IsTerminal() && task.CompletedAt.Before(cutoff) {
			delete(p.tasks, id)
			removed++
		}
	}
	return removed
}

// Subscribe registers a progress update channel. Sends to a full
// subscriber are dropped with a warning so workers are never blocked.
func (p *BackgroundProcessor) Subscribe() (<-chan domain.ProgressUpdate, func()) {
	ch := make(chan domain.ProgressUpdate, p.cfg.SubscriberBuffer)

	p.subMu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	p.subMu.Unlock()

	cancel := func() {
		p.subMu.Lock()
		if sub, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(sub)
		}
		p.subMu.Unlock()
	}
	return ch, cancel
}

// publish fans an update out to all subscribers with a bounded,
// non-blocking send.
func (p *BackgroundProcessor) publish(update domain.ProgressUpdate) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	for id, ch := range p.subs {
		select {
		case ch <- update:
		default:
			logger.Warn("Subscriber %d channel full, dropping update for task %s", id, update.TaskID)
		}
	}
}

// Stop signals workers to stop accepting work, drains in-flight tasks
// up to the configured timeout, then force-cancels whatever remains.
func (p *BackgroundProcessor) Stop() error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.stopCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timeout := p.cfg.DrainTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		// Force-terminate: cancel every running task context.
		p.mu.Lock()
		for _, cancel := range p.cancels {
			cancel()
		}
		p.mu.Unlock()
		<-done
		return fmt.Errorf("processor drain exceeded %s", timeout)
	}
}
