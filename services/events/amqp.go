package eventsvc

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/trezcool/kodi/core"
)

const publishTimeout = 5 * time.Second

// channel is the subset of *amqp.Channel used by AMQPPublisher.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events as JSON to a durable topic exchange, routed by event name.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
	appID    string
}

var _ core.EventPublisher = (*AMQPPublisher)(nil)

func NewAMQPPublisher(conf *core.Config) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(conf.Events.AMQPURL)
	if err != nil {
		return nil, errors.Wrap(err, "dialing rabbitmq")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "opening channel")
	}
	err = ch.ExchangeDeclare(
		conf.Events.Exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrapf(err, "declaring exchange %s", conf.Events.Exchange)
	}

	pub := newAMQPPublisher(ch, conf.Events.Exchange, conf.AppName)
	pub.conn = conn
	return pub, nil
}

func newAMQPPublisher(ch channel, exchange, appID string) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, exchange: exchange, appID: appID}
}

func (p *AMQPPublisher) Publish(ctx context.Context, evt core.Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrapf(err, "encoding event %s", evt.Name)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    evt.OccurredAt,
		AppId:        p.appID,
		Type:         evt.Name,
		Body:         body,
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return errors.New("publisher closed")
	}
	if err = p.ch.PublishWithContext(ctx, p.exchange, evt.Name, false, false, msg); err != nil {
		return errors.Wrapf(err, "publishing event %s", evt.Name)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	if p.ch != nil {
		firstErr = p.ch.Close()
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
