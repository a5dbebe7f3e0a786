package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	dialTimeout   = 5 * time.Second
	redialBackoff = 10 * time.Second
)

var (
	ErrPublisherClosed   = errors.New("event publisher closed")
	ErrBrokerUnavailable = errors.New("event broker unavailable")
)

type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type amqpConnection interface {
	channel() (amqpChannel, error)
	Close() error
}

type dialFunc func(url string) (amqpConnection, error)

type brokerConnection struct {
	conn *amqp.Connection
}

func (connection brokerConnection) channel() (amqpChannel, error) {
	channel, err := connection.conn.Channel()
	if err != nil {
		return nil, err
	}
	return channel, nil
}

func (connection brokerConnection) Close() error {
	return connection.conn.Close()
}

func dialBroker(url string) (amqpConnection, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		return nil, err
	}
	return brokerConnection{conn: conn}, nil
}

// AMQPPublisher publishes ledger events as persistent JSON messages to a
// durable topic exchange, keyed by event kind. The broker is dialed in the
// background; callers wait for it only as long as their context allows. After
// a failed dial, publishes fail fast until redialBackoff has passed.
type AMQPPublisher struct {
	url      string
	exchange string
	logger   zerolog.Logger
	dial     dialFunc
	now      func() time.Time

	mu      sync.Mutex
	conn    amqpConnection
	channel amqpChannel
	dialing chan struct{}
	dialErr error
	retryAt time.Time
	closed  bool
}

func NewAMQPPublisher(url string, exchange string, logger zerolog.Logger) *AMQPPublisher {
	return newAMQPPublisher(url, exchange, logger, dialBroker)
}

func newAMQPPublisher(url string, exchange string, logger zerolog.Logger, dial dialFunc) *AMQPPublisher {
	return &AMQPPublisher{url: url, exchange: exchange, logger: logger, dial: dial, now: time.Now}
}

func (publisher *AMQPPublisher) Publish(ctx context.Context, event LedgerEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	message := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         event.Kind,
		Body:         body,
	}

	for {
		publisher.mu.Lock()
		if publisher.closed {
			publisher.mu.Unlock()
			return ErrPublisherClosed
		}
		if publisher.channel != nil {
			err := publisher.channel.PublishWithContext(ctx, publisher.exchange, event.Kind, false, false, message)
			if err != nil {
				publisher.resetLocked()
			}
			publisher.mu.Unlock()
			if err != nil {
				return fmt.Errorf("publish %s: %w", event.Kind, err)
			}
			return nil
		}

		dialing := publisher.dialing
		if dialing == nil {
			if publisher.now().Before(publisher.retryAt) {
				dialErr := publisher.dialErr
				publisher.mu.Unlock()
				return fmt.Errorf("%w: %w", ErrBrokerUnavailable, dialErr)
			}
			dialing = make(chan struct{})
			publisher.dialing = dialing
			go publisher.connect(dialing)
		}
		publisher.mu.Unlock()

		select {
		case <-dialing:
		case <-ctx.Done():
			return fmt.Errorf("wait for event broker: %w", ctx.Err())
		}
	}
}

func (publisher *AMQPPublisher) Close() error {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()

	publisher.closed = true
	return publisher.resetLocked()
}

// connect runs without the lock held and closes done once the outcome is
// recorded.
func (publisher *AMQPPublisher) connect(done chan struct{}) {
	conn, channel, err := publisher.open()

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	defer close(done)

	publisher.dialing = nil
	switch {
	case err != nil:
		publisher.dialErr = err
		publisher.retryAt = publisher.now().Add(redialBackoff)
		publisher.logger.Warn().Err(err).Dur("retry_in", redialBackoff).Msg("event broker unreachable")
	case publisher.closed:
		_ = channel.Close()
		_ = conn.Close()
	default:
		publisher.logger.Info().Str("exchange", publisher.exchange).Msg("event broker connected")
		publisher.conn = conn
		publisher.channel = channel
		publisher.dialErr = nil
	}
}

func (publisher *AMQPPublisher) open() (amqpConnection, amqpChannel, error) {
	conn, err := publisher.dial(publisher.url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial broker: %w", err)
	}
	channel, err := conn.channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := channel.ExchangeDeclare(publisher.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declare exchange %s: %w", publisher.exchange, err)
	}
	return conn, channel, nil
}

func (publisher *AMQPPublisher) resetLocked() error {
	var errs []error
	if publisher.channel != nil {
		errs = append(errs, publisher.channel.Close())
		publisher.channel = nil
	}
	if publisher.conn != nil {
		errs = append(errs, publisher.conn.Close())
		publisher.conn = nil
	}
	return errors.Join(errs...)
}
