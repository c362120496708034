package crop

import (
	"context"
	"sync"

	"github.com/dlevesque1980/dailywallpaper-sub000/util/log"
	"github.com/google/uuid"
)

// analysisOutcome is what one offloaded analysis job produces.
type analysisOutcome struct {
	scores []Score
	err    error
}

// analysisJob is one unit of offloaded work. The result channel is buffered
// so a worker finishing after the supervisor has abandoned the job never
// blocks.
type analysisJob struct {
	id       string
	ctx      context.Context
	run      func(ctx context.Context) ([]Score, error)
	resultCh chan analysisOutcome
}

// Pool manages a bounded set of workers for offloaded crop analyses. Large
// images and heavy strategy mixes run here instead of inline so a slow
// analysis never monopolizes the caller.
type Pool struct {
	jobChan  chan *analysisJob
	workerWg sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.Mutex
}

// NewPool creates a pool; Start must be called before Submit.
func NewPool() *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		jobChan: make(chan *analysisJob, 16),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(workerCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	if workerCount < 1 {
		workerCount = 1
	}
	log.Debugf("Analysis pool: starting %d workers", workerCount)
	for i := 0; i < workerCount; i++ {
		p.workerWg.Add(1)
		go p.workerLoop(i)
	}
}

// Stop cancels outstanding work and waits for the workers to exit.
func (p *Pool) Stop() {
	p.cancel()
	p.workerWg.Wait()
}

// Submit queues an analysis and returns the channel its outcome arrives on.
// Returns false when the pool is stopped or the caller's context is done.
func (p *Pool) Submit(ctx context.Context, run func(ctx context.Context) ([]Score, error)) (<-chan analysisOutcome, bool) {
	if p.ctx.Err() != nil {
		return nil, false
	}

	job := &analysisJob{
		id:       uuid.NewString(),
		ctx:      ctx,
		run:      run,
		resultCh: make(chan analysisOutcome, 1),
	}

	select {
	case p.jobChan <- job:
		return job.resultCh, true
	case <-ctx.Done():
		return nil, false
	case <-p.ctx.Done():
		return nil, false
	}
}

func (p *Pool) workerLoop(id int) {
	defer p.workerWg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job := <-p.jobChan:
			// Skip jobs whose caller already gave up; their context
			// carries the cancellation.
			if err := job.ctx.Err(); err != nil {
				job.resultCh <- analysisOutcome{err: err}
				continue
			}
			scores, err := job.run(job.ctx)
			if err != nil {
				log.Debugf("Analysis pool: worker %d job %s: %v", id, job.id, err)
			}
			job.resultCh <- analysisOutcome{scores: scores, err: err}
		}
	}
}
