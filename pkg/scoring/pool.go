package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Pool fans candidate scoring out over a fixed set of scoring workers,
// one per configured LLM process. Candidate lists are split into
// minibatches so a long list is served by several workers at once.
//
// Pool itself implements Scorer, so agents do not care whether they
// talk to one backend or a pool of them.
type Pool struct {
	tasks     chan task
	minibatch int
	wg        sync.WaitGroup

	mu     sync.RWMutex // serializes Close against in-flight submits
	closed bool
}

type task struct {
	ctx        context.Context
	prompt     string
	candidates []string
	dest       []float64
	errCh      chan<- error
}

// NewPool starts one worker goroutine per backend. minibatch bounds
// how many candidates a worker scores in a single request.
func NewPool(backends []Scorer, minibatch int) (*Pool, error) {
	if len(backends) == 0 {
		return nil, errors.New("scoring: pool needs at least one backend")
	}
	if minibatch <= 0 {
		return nil, fmt.Errorf("scoring: minibatch size must be > 0, got %d", minibatch)
	}

	p := &Pool{
		tasks:     make(chan task),
		minibatch: minibatch,
	}
	for i, backend := range backends {
		p.wg.Add(1)
		go p.worker(i, backend)
	}
	slog.Debug("scoring pool started", "workers", len(backends), "minibatch", minibatch)
	return p, nil
}

func (p *Pool) worker(id int, backend Scorer) {
	defer p.wg.Done()
	for t := range p.tasks {
		select {
		case <-t.ctx.Done():
			t.errCh <- t.ctx.Err()
			continue
		default:
		}
		scores, err := backend.Score(t.ctx, t.prompt, t.candidates)
		if err == nil && len(scores) != len(t.candidates) {
			err = fmt.Errorf("scoring: worker %d returned %d scores for %d candidates", id, len(scores), len(t.candidates))
		}
		if err == nil {
			copy(t.dest, scores)
		}
		t.errCh <- err
	}
}

// Score scores all candidates for one prompt, preserving order.
func (p *Pool) Score(ctx context.Context, prompt string, candidates []string) ([]float64, error) {
	results := make([]float64, len(candidates))
	pending, errCh, err := p.submit(ctx, prompt, candidates, results)
	if err != nil {
		collect(pending, errCh)
		return nil, err
	}
	if err := collect(pending, errCh); err != nil {
		return nil, err
	}
	return results, nil
}

// ScoreBatch scores one candidate list per prompt, one result slice
// per prompt, dispatching every minibatch across the pool at once.
func (p *Pool) ScoreBatch(ctx context.Context, prompts []string, candidates [][]string) ([][]float64, error) {
	if len(prompts) != len(candidates) {
		return nil, fmt.Errorf("scoring: %d prompts but %d candidate lists", len(prompts), len(candidates))
	}

	results := make([][]float64, len(prompts))
	var pending int
	errCh := make(chan error, totalChunks(candidates, p.minibatch))
	for i, prompt := range prompts {
		results[i] = make([]float64, len(candidates[i]))
		n, err := p.submitTo(ctx, prompt, candidates[i], results[i], errCh)
		pending += n
		if err != nil {
			// Drain what was already queued before reporting.
			collect(pending, errCh)
			return nil, err
		}
	}
	if err := collect(pending, errCh); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pool) submit(ctx context.Context, prompt string, candidates []string, dest []float64) (int, chan error, error) {
	errCh := make(chan error, chunks(len(candidates), p.minibatch))
	n, err := p.submitTo(ctx, prompt, candidates, dest, errCh)
	return n, errCh, err
}

func (p *Pool) submitTo(ctx context.Context, prompt string, candidates []string, dest []float64, errCh chan error) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return 0, errors.New("scoring: pool is closed")
	}
	var n int
	for start := 0; start < len(candidates); start += p.minibatch {
		end := start + p.minibatch
		if end > len(candidates) {
			end = len(candidates)
		}
		t := task{
			ctx:        ctx,
			prompt:     prompt,
			candidates: candidates[start:end],
			dest:       dest[start:end],
			errCh:      errCh,
		}
		select {
		case p.tasks <- t:
			n++
		case <-ctx.Done():
			return n, ctx.Err()
		}
	}
	return n, nil
}

func collect(pending int, errCh <-chan error) error {
	var errs []error
	for i := 0; i < pending; i++ {
		if err := <-errCh; err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func chunks(n, size int) int {
	return (n + size - 1) / size
}

func totalChunks(candidates [][]string, size int) int {
	var total int
	for _, c := range candidates {
		total += chunks(len(c), size)
	}
	return total
}

// Close shuts the pool down and waits for in-flight scoring to finish.
// Score calls that already hold the submit lock complete their sends
// before the task channel closes; later calls fail.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}
