package review

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/store"
)

func newTestEngine(t *testing.T, s store.Store, gh *fakeGitHub) *Engine {
	t.Helper()
	p := NewPipeline(s, gh, &fakeAnalyzer{qualityScore: 80}, Config{}, nil)
	e := NewEngine(p, 8)
	e.Start(context.Background(), 2)
	t.Cleanup(e.Stop)
	return e
}

func TestEngine_SubmitProcessesAsync(t *testing.T) {
	s := newTestStore(t)
	trackedRepo(t, s, true)
	gh := &fakeGitHub{
		files:    []models.ChangedFile{{Path: "main.py", Status: models.FileStatusModified}},
		contents: map[string]string{"main.py": "print('hi')"},
	}
	e := newTestEngine(t, s, gh)

	require.True(t, e.Submit(testEvent()))
	e.Wait()

	review := singleReview(t, s)
	assert.Equal(t, models.ReviewStatusCompleted, review.Status)
	assert.Len(t, review.Findings, 3)
}

func TestEngine_SubmitQueueFull(t *testing.T) {
	s := newTestStore(t)
	p := NewPipeline(s, &fakeGitHub{}, &fakeAnalyzer{}, Config{}, nil)
	e := NewEngine(p, 1)
	// No workers started: the first submit fills the queue.
	require.True(t, e.Submit(testEvent()))
	assert.False(t, e.Submit(testEvent()))

	// Drain so Stop does not leave a queued job behind.
	e.Start(context.Background(), 1)
	e.Wait()
	e.Stop()
}

func TestEngine_SubmitAfterStop(t *testing.T) {
	s := newTestStore(t)
	p := NewPipeline(s, &fakeGitHub{}, &fakeAnalyzer{}, Config{}, nil)
	e := NewEngine(p, 4)
	e.Start(context.Background(), 1)
	e.Stop()

	assert.False(t, e.Submit(testEvent()))
}

func TestEngine_WaitReturnsAfterContextCancel(t *testing.T) {
	s := newTestStore(t)
	p := NewPipeline(s, &fakeGitHub{}, &fakeAnalyzer{}, Config{}, nil)
	e := NewEngine(p, 4)

	// Queue events before any worker runs, then start with a context that
	// is already cancelled: workers must release the queued events instead
	// of leaving Wait blocked.
	require.True(t, e.Submit(testEvent()))
	require.True(t, e.Submit(testEvent()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e.Start(ctx, 1)

	done := make(chan struct{})
	go func() {
		e.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after context cancellation")
	}
	e.Stop()
}

func TestEngine_StopIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	p := NewPipeline(s, &fakeGitHub{}, &fakeAnalyzer{}, Config{}, nil)
	e := NewEngine(p, 4)
	e.Start(context.Background(), 1)
	e.Stop()
	e.Stop()
}
