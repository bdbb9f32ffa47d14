package service

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"menuboard/internal/domain"

	"go.uber.org/zap"
)

// ChangeNotifier keeps one change-event subscription open against the
// cloud backend and turns bursts of events into single invalidations.
// Transport failures flip the offline indicator and trigger reconnects
// with capped exponential backoff; they never end the session.
type ChangeNotifier struct {
	session *Session
	gateway CloudGateway
	log     *zap.SugaredLogger

	// reconnect schedule, overridable in tests
	ReconnectBase time.Duration
	ReconnectMax  time.Duration

	online atomic.Bool
}

func NewChangeNotifier(session *Session, gateway CloudGateway, log *zap.SugaredLogger) *ChangeNotifier {
	return &ChangeNotifier{
		session:       session,
		gateway:       gateway,
		log:           log,
		ReconnectBase: time.Second,
		ReconnectMax:  30 * time.Second,
	}
}

// Online reports subscription health for the display's offline
// indicator.
func (n *ChangeNotifier) Online() bool {
	return n.online.Load()
}

var _ HealthReporter = (*ChangeNotifier)(nil)

// NotifierHandle tears the notifier down deterministically: Stop
// releases the backend subscription and waits for both loops to exit,
// even when an invalidation is mid-flight.
type NotifierHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (h *NotifierHandle) Stop() {
	h.cancel()
	<-h.done
}

// Start opens the subscription and wires events to onInvalidate.
// Events arriving while an invalidation runs collapse into at most one
// trailing invalidation.
func (n *ChangeNotifier) Start(onInvalidate func()) *NotifierHandle {
	ctx, cancel := context.WithCancel(n.session.Context())
	trigger := make(chan struct{}, 1)
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		n.subscribeLoop(ctx, trigger)
	}()
	go func() {
		defer wg.Done()
		n.invalidateLoop(ctx, trigger, onInvalidate)
	}()
	go func() {
		wg.Wait()
		close(done)
	}()

	return &NotifierHandle{cancel: cancel, done: done}
}

func (n *ChangeNotifier) subscribeLoop(ctx context.Context, trigger chan<- struct{}) {
	delay := n.ReconnectBase
	classes := []domain.EntityClass{domain.EntityCatalog, domain.EntityCategories}

	for {
		sub, err := n.gateway.Subscribe(ctx, classes, func(domain.ChangeEvent) {
			select {
			case trigger <- struct{}{}:
			default:
				// an invalidation is already pending; coalesce
			}
		})
		if err != nil {
			n.online.Store(false)
			n.log.Warnw("change subscription failed", "error", err, "retry_in", delay)
			if !sleepCtx(ctx, jitter(delay)) {
				return
			}
			delay = nextDelay(delay, n.ReconnectMax)
			continue
		}

		n.online.Store(true)
		delay = n.ReconnectBase

		select {
		case <-ctx.Done():
			sub.Close()
			return
		case err := <-sub.Err():
			n.online.Store(false)
			sub.Close()
			n.log.Warnw("change subscription dropped", "error", err, "retry_in", delay)
			if !sleepCtx(ctx, jitter(delay)) {
				return
			}
			delay = nextDelay(delay, n.ReconnectMax)
		}
	}
}

func (n *ChangeNotifier) invalidateLoop(ctx context.Context, trigger <-chan struct{}, onInvalidate func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-trigger:
			onInvalidate()
		}
	}
}

// jitter spreads a delay by +-20% so reconnecting clients do not
// stampede the backend together.
func jitter(d time.Duration) time.Duration {
	factor := 0.8 + 0.4*rand.Float64()
	return time.Duration(float64(d) * factor)
}

func nextDelay(d, max time.Duration) time.Duration {
	d *= 2
	if d > max {
		return max
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
