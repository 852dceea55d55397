package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-service/domain"
	"recipe-service/internal/utils/logger"
	"recipe-service/internal/utils/queue"
)

type fakeQueue struct {
	mu        sync.Mutex
	pending   []*queue.Envelope
	acked     []*queue.Envelope
	retried   []*queue.Envelope
	dead      []*queue.Envelope
	recovered int
}

func (q *fakeQueue) Enqueue(_ context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, &queue.Envelope{ID: fmt.Sprintf("job-%d", len(q.pending)), Payload: body})
	return nil
}

func (q *fakeQueue) Dequeue(ctx context.Context, timeout time.Duration) (*queue.Envelope, error) {
	q.mu.Lock()
	if len(q.pending) > 0 {
		env := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()
		return env, nil
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return nil, queue.ErrEmpty
	}
}

func (q *fakeQueue) Ack(_ context.Context, env *queue.Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, env)
	return nil
}

func (q *fakeQueue) Retry(_ context.Context, env *queue.Envelope, _ error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.retried = append(q.retried, env)
	return nil
}

func (q *fakeQueue) DeadLetter(_ context.Context, env *queue.Envelope, _ error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead = append(q.dead, env)
	return nil
}

func (q *fakeQueue) RecoverInFlight(context.Context) (int, error) {
	return q.recovered, nil
}

func (q *fakeQueue) Ping(context.Context) error { return nil }

func (q *fakeQueue) Close() error { return nil }

func (q *fakeQueue) counts() (acked, retried, dead int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.acked), len(q.retried), len(q.dead)
}

type fakeProcessor struct {
	mu             sync.Mutex
	err            error
	jobs           []domain.MediaJob
	correlationIDs []string
}

func (p *fakeProcessor) Process(ctx context.Context, job domain.MediaJob) (domain.MediaResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	p.correlationIDs = append(p.correlationIDs, logger.CorrelationID(ctx))
	if _, ok := ctx.Deadline(); !ok {
		return domain.MediaResult{}, errors.New("job ran without a deadline")
	}
	return domain.MediaResult{RecipeID: job.RecipeID}, p.err
}

func envelope(t *testing.T, attempt int, payload any) *queue.Envelope {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return &queue.Envelope{ID: "job", Payload: body, Attempt: attempt}
}

func TestMediaWorker_HandleOutcomes(t *testing.T) {
	job := domain.MediaJob{RecipeID: "r-1", BlobName: "recipes/r-1.png"}

	tests := []struct {
		name       string
		env        func(t *testing.T) *queue.Envelope
		processErr error
		wantAck    int
		wantRetry  int
		wantDead   int
		wantCalls  int
	}{
		{
			name:      "success acks",
			env:       func(t *testing.T) *queue.Envelope { return envelope(t, 0, job) },
			wantAck:   1,
			wantCalls: 1,
		},
		{
			name:       "transient failure retries",
			env:        func(t *testing.T) *queue.Envelope { return envelope(t, 0, job) },
			processErr: errors.New("connection reset"),
			wantRetry:  1,
			wantCalls:  1,
		},
		{
			name:       "last attempt dead-letters",
			env:        func(t *testing.T) *queue.Envelope { return envelope(t, 4, job) },
			processErr: errors.New("connection reset"),
			wantDead:   1,
			wantCalls:  1,
		},
		{
			name:       "missing recipe dead-letters immediately",
			env:        func(t *testing.T) *queue.Envelope { return envelope(t, 0, job) },
			processErr: fmt.Errorf("reload: %w", domain.ErrRecipeNotFound),
			wantDead:   1,
			wantCalls:  1,
		},
		{
			name:       "corrupt image dead-letters immediately",
			env:        func(t *testing.T) *queue.Envelope { return envelope(t, 0, job) },
			processErr: fmt.Errorf("derive: %w", ErrUnsupportedImage),
			wantDead:   1,
			wantCalls:  1,
		},
		{
			name:     "unreadable payload dead-letters without processing",
			env:      func(t *testing.T) *queue.Envelope { return envelope(t, 0, "not a job") },
			wantDead: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQueue{}
			proc := &fakeProcessor{err: tt.processErr}
			w := NewMediaWorker(q, proc, logger.Nop(), WorkerOptions{MaxAttempts: 5, JobTimeout: time.Second})

			w.handle(context.Background(), tt.env(t))

			acked, retried, dead := q.counts()
			assert.Equal(t, tt.wantAck, acked)
			assert.Equal(t, tt.wantRetry, retried)
			assert.Equal(t, tt.wantDead, dead)
			assert.Len(t, proc.jobs, tt.wantCalls)
		})
	}
}

func TestMediaWorker_HandleAfterShutdownStillSettlesJob(t *testing.T) {
	q := &fakeQueue{}
	proc := &fakeProcessor{err: context.Canceled}
	w := NewMediaWorker(q, proc, logger.Nop(), WorkerOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.handle(ctx, envelope(t, 0, domain.MediaJob{RecipeID: "r", BlobName: "b"}))

	_, retried, _ := q.counts()
	assert.Equal(t, 1, retried)
}

func TestMediaWorker_HandlePropagatesCorrelationID(t *testing.T) {
	q := &fakeQueue{}
	proc := &fakeProcessor{}
	w := NewMediaWorker(q, proc, logger.Nop(), WorkerOptions{})

	w.handle(context.Background(), envelope(t, 0, domain.MediaJob{RecipeID: "r", BlobName: "b", CorrelationID: "req-7"}))
	w.handle(context.Background(), envelope(t, 0, domain.MediaJob{RecipeID: "r", BlobName: "b"}))

	assert.Equal(t, []string{"req-7", ""}, proc.correlationIDs)
}

func TestMediaWorker_RunDrainsQueueUntilCancelled(t *testing.T) {
	q := &fakeQueue{recovered: 1}
	proc := &fakeProcessor{}
	w := NewMediaWorker(q, proc, logger.Nop(), WorkerOptions{Concurrency: 2, DequeueTimeout: 10 * time.Millisecond})

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(context.Background(), domain.MediaJob{RecipeID: fmt.Sprintf("r-%d", i), BlobName: "b"}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		acked, _, _ := q.counts()
		return acked == 5
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
