package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	exchangeKind = "topic"

	redialBackoff = 5 * time.Second
)

var ErrPublisherClosed = errors.New("event publisher closed")

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialFunc opens a fresh channel. lost yields once when the connection or
// channel goes away; nil error means a clean close.
type dialFunc func() (ch channel, conn io.Closer, lost <-chan *amqp.Error, err error)

// AMQPPublisher sends events as persistent JSON messages to a topic
// exchange, keyed by event type. A lost connection is logged once and
// redialed on the next Publish.
type AMQPPublisher struct {
	exchange string
	log      *zap.Logger
	dial     dialFunc

	mu         sync.Mutex
	conn       io.Closer
	ch         channel
	gen        int
	down       bool
	closed     bool
	retryAfter time.Time
}

func NewAMQPPublisher(url, exchange string, log *zap.Logger) (*AMQPPublisher, error) {
	dial := func() (channel, io.Closer, <-chan *amqp.Error, error) {
		return dialExchange(url, exchange)
	}
	ch, conn, lost, err := dial()
	if err != nil {
		return nil, err
	}

	p := newAMQPPublisher(ch, exchange, log)
	p.conn = conn
	p.dial = dial
	go p.watch(p.gen, lost)
	return p, nil
}

func dialExchange(url, exchange string) (channel, io.Closer, <-chan *amqp.Error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, exchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
	lost := make(chan *amqp.Error, 1)
	go func() {
		select {
		case err := <-connClosed:
			lost <- err
		case err := <-chClosed:
			lost <- err
		}
	}()
	return ch, conn, lost, nil
}

func newAMQPPublisher(ch channel, exchange string, log *zap.Logger) *AMQPPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &AMQPPublisher{exchange: exchange, log: log, ch: ch}
}

// watch marks generation gen as down when lost reports a broker error.
func (p *AMQPPublisher) watch(gen int, lost <-chan *amqp.Error) {
	if lost == nil {
		return
	}
	err := <-lost
	if err == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || gen != p.gen {
		return
	}
	p.markDownLocked(err)
}

func (p *AMQPPublisher) markDownLocked(err error) {
	if p.down {
		return
	}
	p.down = true
	p.log.Error("rabbitmq connection lost", zap.String("exchange", p.exchange), zap.Error(err))
}

func (p *AMQPPublisher) redialLocked() error {
	if p.dial == nil {
		return errors.New("rabbitmq connection lost")
	}
	if time.Now().Before(p.retryAfter) {
		return errors.New("rabbitmq reconnect backing off")
	}

	ch, conn, lost, err := p.dial()
	if err != nil {
		p.retryAfter = time.Now().Add(redialBackoff)
		p.log.Warn("rabbitmq redial failed", zap.Error(err))
		return err
	}
	p.closeLocked()
	p.ch, p.conn = ch, conn
	p.gen++
	p.down = false
	go p.watch(p.gen, lost)

	p.log.Info("rabbitmq reconnected", zap.String("exchange", p.exchange))
	return nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPublisherClosed
	}
	if p.down || p.ch == nil {
		if err := p.redialLocked(); err != nil {
			return fmt.Errorf("publish %s: %w", ev.Type, err)
		}
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, ev.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		Body:         body,
	}); err != nil {
		if errors.Is(err, amqp.ErrClosed) {
			p.markDownLocked(err)
		}
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}

	p.log.Debug("event published",
		zap.String("exchange", p.exchange),
		zap.String("routing_key", ev.Type),
		zap.String("event_id", ev.ID),
	)
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	return p.closeLocked()
}

func (p *AMQPPublisher) closeLocked() error {
	var firstErr error
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			firstErr = err
		}
		p.ch = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.conn = nil
	}
	return firstErr
}
