package lane_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/helpdeskbot/internal/lane"
)

type staticAuth map[string]string

func (a staticAuth) Authenticate(username, secret string) bool {
	s, ok := a[username]
	return ok && s == secret
}

var auth = staticAuth{"worker": "s3cret", "admin": "adm1n"}

type job struct {
	seq   int
	block chan struct{}
}

// recorder tracks processed jobs and the maximum observed overlap per lane.
type recorder struct {
	mu      sync.Mutex
	order   []int
	active  int32
	overlap int32
	done    chan int
}

func newRecorder(n int) *recorder {
	return &recorder{done: make(chan int, n)}
}

func (r *recorder) process(_ context.Context, j job) {
	if n := atomic.AddInt32(&r.active, 1); n > 1 {
		atomic.StoreInt32(&r.overlap, n)
	}
	if j.block != nil {
		<-j.block
	}
	time.Sleep(time.Millisecond)
	r.mu.Lock()
	r.order = append(r.order, j.seq)
	r.mu.Unlock()
	atomic.AddInt32(&r.active, -1)
	r.done <- j.seq
}

func waitN(t *testing.T, ch <-chan int, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for task %d of %d", i+1, n)
		}
	}
}

func TestLaneRunsInOrderWithoutOverlap(t *testing.T) {
	t.Parallel()

	const n = 50
	rec := newRecorder(n)
	m := lane.NewManager[job](auth, rec.process, lane.Options{})
	defer m.Close()

	for i := 0; i < n; i++ {
		require.NoError(t, m.Submit("worker", "s3cret", 100, job{seq: i}))
	}
	waitN(t, rec.done, n)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	want := make([]int, n)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, rec.order)
	assert.Zero(t, atomic.LoadInt32(&rec.overlap))
}

func TestLanesAreIndependent(t *testing.T) {
	t.Parallel()

	blocked := make(chan struct{})
	slow := newRecorder(1)
	fast := newRecorder(3)

	process := func(ctx context.Context, j job) {
		if j.block != nil {
			slow.process(ctx, j)
			return
		}
		fast.process(ctx, j)
	}
	m := lane.NewManager[job](auth, process, lane.Options{})
	defer m.Close()

	require.NoError(t, m.Submit("worker", "s3cret", 1, job{seq: 0, block: blocked}))
	for i := 1; i <= 3; i++ {
		require.NoError(t, m.Submit("worker", "s3cret", 2, job{seq: i}))
	}

	// Chat 2 finishes while chat 1 is still blocked.
	waitN(t, fast.done, 3)
	fast.mu.Lock()
	assert.Equal(t, []int{1, 2, 3}, fast.order)
	fast.mu.Unlock()

	close(blocked)
	waitN(t, slow.done, 1)
}

func TestSlowTaskDelaysSameLane(t *testing.T) {
	t.Parallel()

	blocked := make(chan struct{})
	rec := newRecorder(2)
	m := lane.NewManager[job](auth, rec.process, lane.Options{})
	defer m.Close()

	require.NoError(t, m.Submit("worker", "s3cret", 7, job{seq: 1, block: blocked}))
	require.NoError(t, m.Submit("worker", "s3cret", 7, job{seq: 2}))

	select {
	case <-rec.done:
		t.Fatal("second task ran before the first completed")
	case <-time.After(50 * time.Millisecond):
	}

	l, err := m.GetLane("worker", "s3cret", 7)
	require.NoError(t, err)
	assert.Equal(t, 1, l.Pending())

	close(blocked)
	waitN(t, rec.done, 2)
	rec.mu.Lock()
	assert.Equal(t, []int{1, 2}, rec.order)
	rec.mu.Unlock()
}

func TestGetLaneReturnsSameLane(t *testing.T) {
	t.Parallel()

	m := lane.NewManager[job](auth, func(context.Context, job) {}, lane.Options{})
	defer m.Close()

	a, err := m.GetLane("worker", "s3cret", 5)
	require.NoError(t, err)
	b, err := m.GetLane("worker", "s3cret", 5)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, lane.Key{Bot: "worker", ChatID: 5}, a.Key())

	other, err := m.GetLane("admin", "adm1n", 5)
	require.NoError(t, err)
	assert.NotSame(t, a, other)
	assert.Equal(t, 2, m.Len())
}

func TestGetLaneRefusesBadCredentials(t *testing.T) {
	t.Parallel()

	m := lane.NewManager[job](auth, func(context.Context, job) {}, lane.Options{})
	defer m.Close()

	for i := int64(0); i < 5; i++ {
		_, err := m.GetLane("worker", "s3cret", i)
		require.NoError(t, err)
	}

	_, err := m.GetLane("worker", "wrong", 0)
	assert.ErrorIs(t, err, lane.ErrRefused)
	_, err = m.GetLane("worker", "wrong", 99)
	assert.ErrorIs(t, err, lane.ErrRefused)
	_, err = m.GetLane("unknown", "s3cret", 0)
	assert.ErrorIs(t, err, lane.ErrRefused)
	assert.ErrorIs(t, m.Submit("worker", "", 0, job{}), lane.ErrRefused)
	assert.Equal(t, 5, m.Len())
}

func TestConcurrentFirstArrival(t *testing.T) {
	t.Parallel()

	const n = 64
	var processed int32
	done := make(chan int, n)
	m := lane.NewManager[job](auth, func(_ context.Context, j job) {
		atomic.AddInt32(&processed, 1)
		done <- j.seq
	}, lane.Options{})
	defer m.Close()

	lanes := make([]*lane.Lane[job], n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l, err := m.GetLane("worker", "s3cret", 42)
			assert.NoError(t, err)
			lanes[i] = l
			assert.NoError(t, l.Enqueue(job{seq: i}))
		}(i)
	}
	wg.Wait()
	waitN(t, done, n)

	assert.Equal(t, 1, m.Len())
	for _, l := range lanes {
		assert.Same(t, lanes[0], l)
	}
	assert.Equal(t, int32(n), atomic.LoadInt32(&processed))
}

func TestPanicDoesNotStopLane(t *testing.T) {
	t.Parallel()

	done := make(chan int, 2)
	m := lane.NewManager[job](auth, func(_ context.Context, j job) {
		if j.seq == 0 {
			panic("boom")
		}
		done <- j.seq
	}, lane.Options{})
	defer m.Close()

	require.NoError(t, m.Submit("worker", "s3cret", 1, job{seq: 0}))
	require.NoError(t, m.Submit("worker", "s3cret", 1, job{seq: 1}))
	waitN(t, done, 1)
}

func TestEvictIdleLanes(t *testing.T) {
	t.Parallel()

	var clock atomic.Int64
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return base.Add(time.Duration(clock.Load())) }

	blocked := make(chan struct{})
	started := make(chan struct{}, 1)
	m := lane.NewManager[job](auth, func(_ context.Context, j job) {
		if j.block != nil {
			started <- struct{}{}
			<-j.block
		}
	}, lane.Options{IdleTimeout: time.Minute, Now: now})
	defer m.Close()

	idle, err := m.GetLane("worker", "s3cret", 1)
	require.NoError(t, err)
	require.NoError(t, m.Submit("worker", "s3cret", 2, job{block: blocked}))
	<-started

	clock.Store(int64(2 * time.Minute))
	assert.Equal(t, 1, m.Evict(now()))
	assert.Equal(t, 1, m.Len())

	// The evicted lane refuses work; Submit transparently uses a new lane.
	assert.ErrorIs(t, idle.Enqueue(job{}), lane.ErrLaneClosed)
	fresh, err := m.GetLane("worker", "s3cret", 1)
	require.NoError(t, err)
	assert.NotSame(t, idle, fresh)

	close(blocked)
}

func TestEvictOverCapacity(t *testing.T) {
	t.Parallel()

	var clock atomic.Int64
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return base.Add(time.Duration(clock.Load())) }

	m := lane.NewManager[job](auth, func(context.Context, job) {}, lane.Options{MaxLanes: 2, Now: now})
	defer m.Close()

	for i := int64(1); i <= 4; i++ {
		clock.Store(int64(time.Duration(i) * time.Second))
		_, err := m.GetLane("worker", "s3cret", i)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, m.Evict(now()))
	assert.Equal(t, 2, m.Len())

	// The two most recent lanes survive.
	clock.Store(int64(10 * time.Second))
	l3, err := m.GetLane("worker", "s3cret", 3)
	require.NoError(t, err)
	assert.True(t, l3.Idle())
	assert.Equal(t, 2, m.Len())
}

func TestCloseRefusesNewWork(t *testing.T) {
	t.Parallel()

	m := lane.NewManager[job](auth, func(context.Context, job) {}, lane.Options{})
	l, err := m.GetLane("worker", "s3cret", 1)
	require.NoError(t, err)

	m.Close()
	assert.ErrorIs(t, l.Enqueue(job{}), lane.ErrLaneClosed)
	_, err = m.GetLane("worker", "s3cret", 1)
	assert.ErrorIs(t, err, lane.ErrManagerClosed)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, m.Wait(ctx))
}

func TestTaskTimeoutBoundsContext(t *testing.T) {
	t.Parallel()

	errs := make(chan error, 1)
	m := lane.NewManager[job](auth, func(ctx context.Context, _ job) {
		<-ctx.Done()
		errs <- ctx.Err()
	}, lane.Options{TaskTimeout: 10 * time.Millisecond})
	defer m.Close()

	require.NoError(t, m.Submit("worker", "s3cret", 1, job{}))
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(5 * time.Second):
		t.Fatal("task context was not cancelled")
	}
}
