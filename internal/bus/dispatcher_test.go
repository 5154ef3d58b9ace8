package bus

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func echoWorker() Worker {
	return WorkerFunc(func(ctx context.Context, env Envelope) Result {
		return OK(env.Payload)
	})
}

func newTestDispatcher(opts ...Option) (*Dispatcher, *Registry) {
	reg := NewRegistry(zerolog.Nop())
	return NewDispatcher(reg, opts...), reg
}

func TestSend_RecipientNotFound(t *testing.T) {
	d, _ := newTestDispatcher()

	r := d.Send(context.Background(), "pipeline", "ghost", "hi", KindRequest, PriorityMedium)
	assert.False(t, r.OK)
	assert.Equal(t, ErrRecipientNotFound, r.Err)
	assert.Equal(t, "ghost", r.Meta.Worker)
	assert.Empty(t, d.History(), "undeliverable envelopes are not recorded")
}

func TestSend_Success(t *testing.T) {
	d, reg := newTestDispatcher()
	reg.Register("echo", echoWorker())

	r := d.Send(context.Background(), "pipeline", "echo", 42, KindRequest, PriorityHigh)
	require.True(t, r.OK)
	assert.Equal(t, 42, r.Data)
	assert.Equal(t, "echo", r.Meta.Worker)

	hist := d.History()
	require.Len(t, hist, 1)
	assert.Equal(t, "pipeline", hist[0].From)
	assert.Equal(t, "echo", hist[0].To)
	assert.Equal(t, PriorityHigh, hist[0].Priority)
	assert.NotEqual(t, [16]byte{}, [16]byte(hist[0].ID))
}

func TestSend_WorkerPanic(t *testing.T) {
	d, reg := newTestDispatcher()
	reg.Register("boom", WorkerFunc(func(ctx context.Context, env Envelope) Result {
		panic("kaboom")
	}))

	r := d.Send(context.Background(), "pipeline", "boom", nil, KindRequest, PriorityMedium)
	assert.False(t, r.OK)
	assert.Equal(t, ErrWorkerFault, r.Err)
	assert.Contains(t, r.Detail, "kaboom")
}

func TestSend_Timeout(t *testing.T) {
	d, reg := newTestDispatcher()
	reg.Register("slow", WorkerFunc(func(ctx context.Context, env Envelope) Result {
		<-ctx.Done()
		return OK("too late")
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	r := d.Send(ctx, "pipeline", "slow", nil, KindRequest, PriorityMedium)
	assert.False(t, r.OK)
	assert.Equal(t, ErrTimeout, r.Err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSend_Canceled(t *testing.T) {
	d, reg := newTestDispatcher()
	started := make(chan struct{})
	reg.Register("slow", WorkerFunc(func(ctx context.Context, env Envelope) Result {
		close(started)
		<-ctx.Done()
		return OK(nil)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	r := d.Send(ctx, "pipeline", "slow", nil, KindRequest, PriorityMedium)
	assert.Equal(t, ErrCanceled, r.Err)
}

func TestSend_AlreadyCanceled(t *testing.T) {
	d, reg := newTestDispatcher()
	called := false
	reg.Register("w", WorkerFunc(func(ctx context.Context, env Envelope) Result {
		called = true
		return OK(nil)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := d.Send(ctx, "pipeline", "w", nil, KindRequest, PriorityMedium)
	assert.Equal(t, ErrCanceled, r.Err)
	assert.False(t, called)
}

func TestSend_WorkerFailurePassesThrough(t *testing.T) {
	d, reg := newTestDispatcher()
	reg.Register("picky", WorkerFunc(func(ctx context.Context, env Envelope) Result {
		return Fail(ErrWorkerFault, "unexpected payload %T", env.Payload)
	}))

	r := d.Send(context.Background(), "pipeline", "picky", 3.5, KindRequest, PriorityLow)
	assert.False(t, r.OK)
	assert.Equal(t, "worker_fault: unexpected payload float64", r.Error())
}

func TestHistory_EvictsOldest(t *testing.T) {
	d, reg := newTestDispatcher(WithHistoryCap(3))
	reg.Register("echo", echoWorker())

	for i := 0; i < 5; i++ {
		d.Send(context.Background(), "pipeline", "echo", i, KindRequest, PriorityMedium)
	}

	hist := d.History()
	require.Len(t, hist, 3)
	for i, env := range hist {
		assert.Equal(t, i+2, env.Payload)
	}
}

func TestHistory_DefaultCap(t *testing.T) {
	h := NewHistory(0)
	for i := 0; i < DefaultHistoryCap+10; i++ {
		h.Append(Envelope{Payload: i})
	}
	assert.Equal(t, DefaultHistoryCap, h.Len())
	snap := h.Snapshot()
	assert.Equal(t, 10, snap[0].Payload)
}

func TestBroadcast(t *testing.T) {
	d, reg := newTestDispatcher(WithBroadcastLimit(2))
	for i := 0; i < 5; i++ {
		reg.Register(fmt.Sprintf("w%d", i), echoWorker())
	}
	reg.Register("sender", echoWorker())
	reg.Register("broken", WorkerFunc(func(ctx context.Context, env Envelope) Result {
		panic("nope")
	}))

	out := d.Broadcast(context.Background(), "sender", "ping", KindNotification)
	require.Len(t, out, 6)
	assert.NotContains(t, out, "sender")
	for i := 0; i < 5; i++ {
		r := out[fmt.Sprintf("w%d", i)]
		assert.True(t, r.OK)
		assert.Equal(t, "ping", r.Data)
	}
	assert.Equal(t, ErrWorkerFault, out["broken"].Err)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	reg.Register("b", echoWorker())
	reg.Register("a", echoWorker())

	_, ok := reg.Lookup("a")
	assert.True(t, ok)
	_, ok = reg.Lookup("z")
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, reg.Names())

	// hot swap keeps a single entry
	reg.Register("a", WorkerFunc(func(ctx context.Context, env Envelope) Result { return OK("v2") }))
	assert.Len(t, reg.Names(), 2)
	w, _ := reg.Lookup("a")
	assert.Equal(t, "v2", w.Receive(context.Background(), Envelope{}).Data)
}

func TestRegistry_ListStatusesReflectsInflight(t *testing.T) {
	d, reg := newTestDispatcher()
	release := make(chan struct{})
	var entered sync.WaitGroup
	entered.Add(2)
	reg.Register("busy", WorkerFunc(func(ctx context.Context, env Envelope) Result {
		entered.Done()
		<-release
		return OK(nil)
	}))
	reg.Register("idle", echoWorker())

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Send(context.Background(), "t", "busy", nil, KindRequest, PriorityMedium)
		}()
	}
	entered.Wait()

	statuses := reg.ListStatuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, Status{Name: "busy", Busy: true, QueueDepth: 1}, statuses[0])
	assert.Equal(t, Status{Name: "idle"}, statuses[1])

	close(release)
	wg.Wait()
	assert.Eventually(t, func() bool {
		return !reg.ListStatuses()[0].Busy
	}, time.Second, 5*time.Millisecond)
}

func TestRegistry_ConcurrentRegisterAndSend(t *testing.T) {
	d, reg := newTestDispatcher()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		name := fmt.Sprintf("w%d", i%4)
		go func() {
			defer wg.Done()
			reg.Register(name, echoWorker())
		}()
		go func() {
			defer wg.Done()
			r := d.Send(context.Background(), "t", name, i, KindRequest, PriorityMedium)
			if !r.OK {
				assert.Equal(t, ErrRecipientNotFound, r.Err)
			}
		}()
	}
	wg.Wait()
	assert.Len(t, reg.Names(), 4)
}
