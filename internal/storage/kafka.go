package storage

import (
	"context"
	"encoding/json"
	"sync"

	"menuboard/internal/domain"

	"github.com/segmentio/kafka-go"
)

// Subscribe opens the change-event feed for the given entity classes.
// Events outside the subscribed classes are dropped. The returned
// subscription reports a single error on Err when the feed dies; the
// caller owns reconnection.
func (b *CloudBackend) Subscribe(ctx context.Context, classes []domain.EntityClass, handler func(domain.ChangeEvent)) (domain.Subscription, error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: b.Brokers,
		Topic:   b.Topic,
		GroupID: b.GroupID,
	})

	readCtx, cancel := context.WithCancel(ctx)
	sub := &kafkaSubscription{
		reader: reader,
		cancel: cancel,
		errc:   make(chan error, 1),
	}

	wanted := make(map[domain.EntityClass]struct{}, len(classes))
	for _, class := range classes {
		wanted[class] = struct{}{}
	}

	go func() {
		for {
			msg, err := reader.ReadMessage(readCtx)
			if err != nil {
				if readCtx.Err() != nil {
					return
				}
				sub.errc <- &domain.TransportError{Op: "read change feed", Err: err}
				return
			}

			var event domain.ChangeEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				b.Log.Warnw("dropping malformed change event", "error", err)
				continue
			}
			if _, ok := wanted[event.Entity]; !ok {
				continue
			}
			handler(event)
		}
	}()

	return sub, nil
}

type kafkaSubscription struct {
	reader *kafka.Reader
	cancel context.CancelFunc
	errc   chan error
	once   sync.Once
	err    error
}

func (s *kafkaSubscription) Err() <-chan error { return s.errc }

func (s *kafkaSubscription) Close() error {
	s.once.Do(func() {
		s.cancel()
		s.err = s.reader.Close()
	})
	return s.err
}
