package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// MessageHandler receives the raw payload of one stream message.
type MessageHandler func(payload []byte)

// NATSPublisher publishes raw ticket events to a subject.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc}, nil
}

// Publish sends payload and waits until the server has acknowledged it.
func (p *NATSPublisher) Publish(subject string, payload []byte) error {
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return p.conn.Flush()
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// NATSSubscriber consumes ticket events from a subject.
type NATSSubscriber struct {
	conn   *nats.Conn
	logger *zap.Logger
}

// NewNATSSubscriber connects to NATS with automatic reconnection support.
// Extra nats.Option values can be appended.
func NewNATSSubscriber(url string, logger *zap.Logger, opts ...nats.Option) (*NATSSubscriber, error) {
	log := logger.Named("nats")
	defaults := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSSubscriber{conn: nc, logger: log}, nil
}

// Subscribe delivers every message on subject to handler, in arrival order.
// A non-empty queue group load-balances messages across service replicas.
// Call the returned cancel function to unsubscribe; it waits for nothing.
func (s *NATSSubscriber) Subscribe(subject, queue string, handler MessageHandler) (func(), error) {
	cb := func(msg *nats.Msg) {
		handler(msg.Data)
	}

	var (
		sub *nats.Subscription
		err error
	)
	if queue != "" {
		sub, err = s.conn.QueueSubscribe(subject, queue, cb)
	} else {
		sub, err = s.conn.Subscribe(subject, cb)
	}
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	// Flush ensures the subscription is registered on the server before
	// returning, so that messages published on other connections are routed.
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("flushing subscription: %w", err)
	}
	s.logger.Info("subscribed", zap.String("subject", subject), zap.String("queue", queue))

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = sub.Unsubscribe()
		})
	}
	return cancel, nil
}

// Connected reports whether the connection is currently usable.
func (s *NATSSubscriber) Connected() bool {
	return s != nil && s.conn != nil && s.conn.IsConnected()
}

// Close drops all subscriptions and closes the connection.
func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
