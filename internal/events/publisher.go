// Package events publishes and consumes record change events over NATS.
package events

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/fivetwenty-io/logo-objects/internal/constants"
	"github.com/fivetwenty-io/logo-objects/pkg/logo"
)

// Publisher sends change events on a NATS connection. It satisfies
// logo.EventPublisher.
type Publisher struct {
	conn  *nats.Conn
	owned bool
}

// Connect dials url and returns a Publisher owning the connection.
func Connect(url string, opts ...nats.Option) (*Publisher, error) {
	options := append([]nats.Option{
		nats.Name(constants.EventClientName),
		nats.Timeout(constants.ShortHTTPTimeout),
	}, opts...)

	conn, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}

	return &Publisher{conn: conn, owned: true}, nil
}

// NewPublisher wraps an existing connection. Close leaves it open.
func NewPublisher(conn *nats.Conn) *Publisher {
	return &Publisher{conn: conn}
}

// Publish sends data on subject.
func (p *Publisher) Publish(subject string, data []byte) error {
	err := p.conn.Publish(subject, data)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}

	return nil
}

// Close flushes pending events and closes an owned connection.
func (p *Publisher) Close() error {
	if !p.owned {
		return p.conn.Flush()
	}

	err := p.conn.Drain()
	if err != nil {
		p.conn.Close()

		return fmt.Errorf("draining NATS connection: %w", err)
	}

	return nil
}

// Subject returns the wildcard subject matching events under prefix, for
// one entity or for all of them when entity is empty.
func Subject(prefix, entity string) string {
	if prefix == "" {
		prefix = constants.DefaultEventSubjectPrefix
	}

	if entity == "" {
		return prefix + ".>"
	}

	return strings.Join([]string{prefix, entity, "*"}, ".")
}

// DecodeEvent parses an event payload.
func DecodeEvent(data []byte) (logo.ChangeEvent, error) {
	var event logo.ChangeEvent

	err := json.Unmarshal(data, &event)
	if err != nil {
		return event, fmt.Errorf("decoding change event: %w", err)
	}

	return event, nil
}

// Subscription is an active event subscription.
type Subscription struct {
	conn *nats.Conn
	sub  *nats.Subscription
}

// Subscribe connects to url and calls handler for every event on subject.
// Undecodable messages are passed to onError when it is not nil.
func Subscribe(url, subject string, handler func(logo.ChangeEvent), onError func(error)) (*Subscription, error) {
	conn, err := nats.Connect(url, nats.Name(constants.EventClientName), nats.Timeout(constants.ShortHTTPTimeout))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}

	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		event, decodeErr := DecodeEvent(msg.Data)
		if decodeErr != nil {
			if onError != nil {
				onError(decodeErr)
			}

			return
		}

		handler(event)
	})
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}

	return &Subscription{conn: conn, sub: sub}, nil
}

// Close unsubscribes and closes the connection.
func (s *Subscription) Close() error {
	err := s.sub.Unsubscribe()

	s.conn.Close()

	if err != nil {
		return fmt.Errorf("unsubscribing: %w", err)
	}

	return nil
}
