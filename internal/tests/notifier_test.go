package tests

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"menuboard/internal/domain"
	"menuboard/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSubscription struct {
	errc   chan error
	mu     sync.Mutex
	closed bool
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{errc: make(chan error, 1)}
}

func (s *fakeSubscription) Err() <-chan error { return s.errc }

func (s *fakeSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSubscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeFeedGateway only implements the subscription side; the notifier
// never touches rows.
type fakeFeedGateway struct {
	mu        sync.Mutex
	failFirst int
	calls     int
	subs      []*fakeSubscription
	handlers  []func(domain.ChangeEvent)
}

func (g *fakeFeedGateway) SelectAll(context.Context, domain.EntityClass) ([]domain.Row, error) {
	return nil, nil
}

func (g *fakeFeedGateway) UpsertAll(context.Context, domain.EntityClass, []domain.Row) error {
	return nil
}

func (g *fakeFeedGateway) Subscribe(ctx context.Context, classes []domain.EntityClass, handler func(domain.ChangeEvent)) (domain.Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.calls <= g.failFirst {
		return nil, errors.New("broker unreachable")
	}
	sub := newFakeSubscription()
	g.subs = append(g.subs, sub)
	g.handlers = append(g.handlers, handler)
	return sub, nil
}

func (g *fakeFeedGateway) connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.handlers) > 0
}

func (g *fakeFeedGateway) emit(n int) {
	g.mu.Lock()
	handler := g.handlers[len(g.handlers)-1]
	g.mu.Unlock()
	for i := 0; i < n; i++ {
		handler(domain.ChangeEvent{Entity: domain.EntityCatalog, Action: "update"})
	}
}

func (g *fakeFeedGateway) lastSub() *fakeSubscription {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.subs[len(g.subs)-1]
}

func newTestNotifier(gateway service.CloudGateway) *service.ChangeNotifier {
	n := service.NewChangeNotifier(newTestSession(domain.ModeCloudRemote), gateway, zap.NewNop().Sugar())
	n.ReconnectBase = 5 * time.Millisecond
	n.ReconnectMax = 20 * time.Millisecond
	return n
}

func TestNotifierCoalescesEventBursts(t *testing.T) {
	gateway := &fakeFeedGateway{}

	var mu sync.Mutex
	invalidates := 0
	firstEntered := make(chan struct{})
	release := make(chan struct{})

	notifier := newTestNotifier(gateway)
	handle := notifier.Start(func() {
		mu.Lock()
		invalidates++
		first := invalidates == 1
		mu.Unlock()
		if first {
			close(firstEntered)
			<-release
		}
	})
	defer handle.Stop()

	require.Eventually(t, gateway.connected, time.Second, time.Millisecond)

	gateway.emit(1)
	<-firstEntered

	// burst of events while the first invalidation is still running
	gateway.emit(8)
	close(release)

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, invalidates, "burst must collapse to one trailing invalidation")
}

func TestNotifierReconnectsWithBackoff(t *testing.T) {
	gateway := &fakeFeedGateway{failFirst: 2}

	notifier := newTestNotifier(gateway)
	handle := notifier.Start(func() {})
	defer handle.Stop()

	require.Eventually(t, notifier.Online, time.Second, time.Millisecond)
	assert.Equal(t, 3, func() int { gateway.mu.Lock(); defer gateway.mu.Unlock(); return gateway.calls }())
}

func TestNotifierRecoversFromDroppedFeed(t *testing.T) {
	gateway := &fakeFeedGateway{}

	notifier := newTestNotifier(gateway)
	handle := notifier.Start(func() {})
	defer handle.Stop()

	require.Eventually(t, notifier.Online, time.Second, time.Millisecond)

	first := gateway.lastSub()
	first.errc <- errors.New("connection reset")

	require.Eventually(t, first.isClosed, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		return gateway.connected() && notifier.Online() && gateway.lastSub() != first
	}, time.Second, time.Millisecond)
}

func TestNotifierStopReleasesSubscription(t *testing.T) {
	gateway := &fakeFeedGateway{}

	notifier := newTestNotifier(gateway)
	handle := notifier.Start(func() {})

	require.Eventually(t, gateway.connected, time.Second, time.Millisecond)

	handle.Stop()
	assert.True(t, gateway.lastSub().isClosed())
}
