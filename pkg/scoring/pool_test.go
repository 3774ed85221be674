package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// lengthScorer scores each candidate by its length, so results are
// easy to predict regardless of which worker handled which chunk.
type lengthScorer struct {
	calls atomic.Int64
}

func (s *lengthScorer) Score(_ context.Context, prompt string, candidates []string) ([]float64, error) {
	s.calls.Add(1)
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = float64(len(c))
	}
	return scores, nil
}

type failingScorer struct{}

func (failingScorer) Score(context.Context, string, []string) ([]float64, error) {
	return nil, errors.New("backend down")
}

func TestPoolScorePreservesOrder(t *testing.T) {
	backend := &lengthScorer{}
	pool, err := NewPool([]Scorer{backend, backend}, 2)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	defer pool.Close()

	candidates := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	scores, err := pool.Score(context.Background(), "prompt", candidates)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	for i, c := range candidates {
		if scores[i] != float64(len(c)) {
			t.Errorf("scores[%d] = %v, want %v", i, scores[i], len(c))
		}
	}

	// 5 candidates at minibatch 2 means 3 chunks.
	if got := backend.calls.Load(); got != 3 {
		t.Errorf("backend calls = %d, want 3", got)
	}
}

func TestPoolScoreBatch(t *testing.T) {
	pool, err := NewPool([]Scorer{&lengthScorer{}, &lengthScorer{}, &lengthScorer{}}, 4)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	defer pool.Close()

	prompts := make([]string, 8)
	candidates := make([][]string, 8)
	for i := range prompts {
		prompts[i] = fmt.Sprintf("prompt %d", i)
		candidates[i] = []string{"x", "yy", strings.Repeat("z", i+1)}
	}

	results, err := pool.ScoreBatch(context.Background(), prompts, candidates)
	if err != nil {
		t.Fatalf("ScoreBatch failed: %v", err)
	}
	if len(results) != len(prompts) {
		t.Fatalf("got %d result lists, want %d", len(results), len(prompts))
	}
	for i, scores := range results {
		want := []float64{1, 2, float64(i + 1)}
		for j := range want {
			if scores[j] != want[j] {
				t.Errorf("results[%d][%d] = %v, want %v", i, j, scores[j], want[j])
			}
		}
	}

	if _, err := pool.ScoreBatch(context.Background(), prompts, candidates[:2]); err == nil {
		t.Error("expected error for mismatched lengths, got nil")
	}
}

func TestPoolPropagatesBackendErrors(t *testing.T) {
	pool, err := NewPool([]Scorer{failingScorer{}}, 2)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Score(context.Background(), "p", []string{"a", "b"}); err == nil {
		t.Error("expected backend error, got nil")
	}
}

func TestPoolHonorsCancellation(t *testing.T) {
	pool, err := NewPool([]Scorer{&lengthScorer{}}, 1)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pool.Score(ctx, "p", []string{"a", "b", "c"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Score with canceled context = %v, want context.Canceled", err)
	}
}

func TestPoolClose(t *testing.T) {
	pool, err := NewPool([]Scorer{&lengthScorer{}}, 1)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	pool.Close()
	pool.Close() // idempotent

	if _, err := pool.Score(context.Background(), "p", []string{"a"}); err == nil {
		t.Error("expected error scoring on a closed pool, got nil")
	}
}

func TestPoolCloseRacingScore(t *testing.T) {
	pool, err := NewPool([]Scorer{&lengthScorer{}, &lengthScorer{}}, 2)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}

	// Hammer Score from several goroutines while Close lands in the
	// middle. Every call must either succeed or report the closed
	// pool; a send on the closed task channel would panic instead.
	done := make(chan struct{})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				_, err := pool.Score(context.Background(), "p", []string{"a", "bb", "ccc"})
				if err != nil {
					if !strings.Contains(err.Error(), "pool is closed") {
						t.Errorf("unexpected Score error: %v", err)
					}
					return
				}
			}
		}()
	}

	pool.Close()
	close(done)
	wg.Wait()
}

func TestNewPoolValidation(t *testing.T) {
	if _, err := NewPool(nil, 4); err == nil {
		t.Error("expected error for empty backend list, got nil")
	}
	if _, err := NewPool([]Scorer{&lengthScorer{}}, 0); err == nil {
		t.Error("expected error for zero minibatch, got nil")
	}
}
