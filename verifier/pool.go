package verifier

import (
	"runtime"
	"sync"
)

// WorkerPoolVerifier fans verification out over a fixed set of goroutines.
// Local verification is CPU-bound on the signature checks, so bounding the
// worker count keeps a burst of logins from starving the rest of the process.
type WorkerPoolVerifier struct {
	jobs    chan job
	wg      sync.WaitGroup
	closing sync.Once
}

type job struct {
	assertion string
	audience  string
	done      chan outcome
}

type outcome struct {
	result *Result
	err    error
}

// NewWorkerPoolVerifier wraps inner in a pool of workers workers. A worker
// count of zero or less means one per CPU.
func NewWorkerPoolVerifier(inner Verifier, workers int) *WorkerPoolVerifier {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	pool := &WorkerPoolVerifier{jobs: make(chan job)}
	pool.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer pool.wg.Done()
			for j := range pool.jobs {
				result, err := inner.Verify(j.assertion, j.audience)
				j.done <- outcome{result: result, err: err}
			}
		}()
	}

	return pool
}

// Verify hands the assertion to a worker and waits for its outcome. Calling
// Verify after Close panics, matching the semantics of sending on a closed
// channel.
func (p *WorkerPoolVerifier) Verify(assertion string, audience string) (*Result, error) {
	done := make(chan outcome, 1)
	p.jobs <- job{assertion: assertion, audience: audience, done: done}
	o := <-done

	return o.result, o.err
}

// Close stops the workers and waits for in-flight verifications to finish.
func (p *WorkerPoolVerifier) Close() {
	p.closing.Do(func() {
		close(p.jobs)
		p.wg.Wait()
	})
}
