package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// ProgressReporter displays real-time progress updates.
type ProgressReporter struct {
	total    int
	done     atomic.Int64
	failed   atomic.Int64
	interval time.Duration
	ticker   *time.Ticker
	stop     chan struct{}
	finished chan struct{}
	writer   io.Writer
	active   int32
	start    time.Time
}

// NewProgressReporter creates a progress reporter for total workers that
// updates at the given interval.
func NewProgressReporter(total int, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		total:    total,
		interval: interval,
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
		writer:   writer,
		start:    time.Now(),
	}
}

// WorkerDone records a finished worker. It matches the runner's completion
// callback and is safe for concurrent use.
func (p *ProgressReporter) WorkerDone(_ int, err error) {
	p.done.Add(1)
	if err != nil {
		p.failed.Add(1)
	}
}

// Start begins displaying progress updates in a background goroutine. The
// ticker only exists between Start and Stop.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	p.start = time.Now()
	p.ticker = time.NewTicker(p.interval)
	go p.run()
}

// Stop halts progress updates and terminates the progress line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.stop)
		p.ticker.Stop()
		<-p.finished
		fmt.Fprint(p.writer, p.line(), "\n")
	}
}

func (p *ProgressReporter) line() string {
	return fmt.Sprintf("\rWorkers: %d/%d done | Failed: %d | Elapsed: %s",
		p.done.Load(), p.total, p.failed.Load(), time.Since(p.start).Round(100*time.Millisecond))
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, p.line())
		case <-p.stop:
			return
		}
	}
}
