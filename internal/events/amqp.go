package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"mobility-finance/ledger-backend/internal/ledger"
)

const publishTimeout = 5 * time.Second

// Channel is the subset of *amqp.Channel the publisher uses
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Dialer opens a channel to the broker. The returned closer releases the
// underlying connection.
type Dialer func() (Channel, func() error, error)

// DialURL returns a Dialer for an amqp:// URL
func DialURL(url string) Dialer {
	return func() (Channel, func() error, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("failed to open channel: %w", err)
		}
		return ch, conn.Close, nil
	}
}

// Publisher sends committed records to a topic exchange with the routing
// key "<contract>.<method>".
type Publisher struct {
	dial     Dialer
	exchange string
	logger   *zap.Logger

	mu        sync.Mutex
	channel   Channel
	closeConn func() error
}

// NewPublisher connects and declares the exchange
func NewPublisher(dial Dialer, exchange string, logger *zap.Logger) (*Publisher, error) {
	p := &Publisher{dial: dial, exchange: exchange, logger: logger}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// RoutingKey returns the topic a record is published under
func RoutingKey(rec ledger.Record) string {
	return rec.Contract + "." + rec.Method
}

// Notify implements ledger.Observer. Failures are logged; the commit has
// already happened.
func (p *Publisher) Notify(ctx context.Context, rec ledger.Record) {
	if err := p.Publish(ctx, rec); err != nil {
		p.logger.Error("Failed to publish committed transaction",
			zap.String("contract", rec.Contract),
			zap.String("method", rec.Method),
			zap.Uint64("seq", rec.Seq),
			zap.Error(err))
	}
}

// Publish sends rec, reconnecting once if the channel has failed
func (p *Publisher) Publish(ctx context.Context, rec ledger.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    rec.ID,
		Timestamp:    time.Unix(int64(rec.Timestamp), 0).UTC(),
		Type:         rec.Method,
		Body:         body,
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil {
		if err := p.connect(); err != nil {
			return err
		}
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, RoutingKey(rec), false, false, msg)
	if err == nil {
		return nil
	}

	p.logger.Warn("Publish failed, reconnecting", zap.Error(err))
	p.release()
	if err := p.connect(); err != nil {
		return err
	}
	if err := p.channel.PublishWithContext(ctx, p.exchange, RoutingKey(rec), false, false, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", RoutingKey(rec), err)
	}
	return nil
}

// Close releases the channel and connection
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.release()
	p.logger.Info("RabbitMQ publisher closed")
}

func (p *Publisher) connect() error {
	ch, closeConn, err := p.dial()
	if err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		if closeConn != nil {
			_ = closeConn()
		}
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	p.channel = ch
	p.closeConn = closeConn
	p.logger.Info("Connected to RabbitMQ", zap.String("exchange", p.exchange))
	return nil
}

func (p *Publisher) release() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.closeConn != nil {
		_ = p.closeConn()
	}
	p.channel, p.closeConn = nil, nil
}
