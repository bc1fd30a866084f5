package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"passage_router/pkg/records"
)

const (
	streamName    = "PASSAGE_RECORDS"
	legSubject    = "passage.legs."
	routeSubject  = "passage.routes."
	streamSubject = "passage.>"
)

// jetStream is the part of nats.JetStreamContext used for publishing.
type jetStream interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATSPublisher publishes one JetStream message per record, on
// passage.legs.<index> and passage.routes.<index>.
type NATSPublisher struct {
	conn *nats.Conn
	js   jetStream
}

// NewNATSPublisher connects to NATS and ensures the records stream exists.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("passage-migrate"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{streamSubject},
		Retention: nats.LimitsPolicy,
		MaxAge:    30 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &NATSPublisher{conn: conn, js: js}, nil
}

// PublishLegs implements Publisher.
func (p *NATSPublisher) PublishLegs(ctx context.Context, legs []records.LegRecord) error {
	for _, l := range legs {
		if err := p.publish(ctx, legSubject+strconv.Itoa(l.Index), l); err != nil {
			return fmt.Errorf("leg %d: %w", l.Index, err)
		}
	}
	return nil
}

// PublishRoutes implements Publisher.
func (p *NATSPublisher) PublishRoutes(ctx context.Context, routes []records.RouteRecord) error {
	for _, r := range routes {
		if err := p.publish(ctx, routeSubject+strconv.Itoa(r.Index), r); err != nil {
			return fmt.Errorf("route %d: %w", r.Index, err)
		}
	}
	return nil
}

func (p *NATSPublisher) publish(ctx context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(subject, data, nats.Context(ctx))
	return err
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
