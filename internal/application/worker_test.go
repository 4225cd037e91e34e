package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/passport-scorer/internal/infra/queue"
)

type chanSource struct {
	tasks chan queue.Task
}

func (s *chanSource) Dequeue(ctx context.Context, timeout time.Duration) (*queue.Task, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case task := <-s.tasks:
		return &task, nil
	case <-time.After(timeout):
		return nil, nil
	}
}

type call struct {
	communityID uint
	address     string
}

type recorder struct {
	mu    sync.Mutex
	calls []call
	done  chan struct{}
}

func (r *recorder) handle(ctx context.Context, communityID uint, address string) {
	r.mu.Lock()
	r.calls = append(r.calls, call{communityID, address})
	r.mu.Unlock()
	r.done <- struct{}{}
}

func TestWorkerDispatchesKnownTasks(t *testing.T) {
	src := &chanSource{tasks: make(chan queue.Task, 4)}
	rec := &recorder{done: make(chan struct{}, 4)}
	handlers := map[string]func(context.Context, uint, string){
		"score_passport_passport": rec.handle,
		"score_registry_passport": rec.handle,
	}

	w := NewWorker(src, handlers, 2, 20*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	src.tasks <- queue.Task{ID: uuid.New(), Name: "score_passport_passport", CommunityID: 1, Address: "0xa"}
	src.tasks <- queue.Task{ID: uuid.New(), Name: "unknown", CommunityID: 1, Address: "0xb"}
	src.tasks <- queue.Task{ID: uuid.New(), Name: "score_registry_passport", CommunityID: 2, Address: "0xc"}

	for i := 0; i < 2; i++ {
		select {
		case <-rec.done:
		case <-time.After(2 * time.Second):
			t.Fatal("task was not dispatched")
		}
	}

	cancel()
	require.NoError(t, <-errc)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.ElementsMatch(t, []call{{1, "0xa"}, {2, "0xc"}}, rec.calls)
}

func TestDispatchUnknownTaskIsDropped(t *testing.T) {
	called := false
	w := NewWorker(nil, map[string]func(context.Context, uint, string){
		"score_passport_passport": func(context.Context, uint, string) { called = true },
	}, 1, time.Second, nil)

	w.Dispatch(context.Background(), queue.Task{Name: "score_something_else"})
	assert.False(t, called)
}
