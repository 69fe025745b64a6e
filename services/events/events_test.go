package eventsvc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kodi/core"
)

type publishing struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	published []publishing
	err       error
	closed    bool
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("missing deadline")
	}
	if c.err != nil {
		return c.err
	}
	c.published = append(c.published, publishing{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestAMQPPublisher_Publish(t *testing.T) {
	ch := new(fakeChannel)
	pub := newAMQPPublisher(ch, "kodi.events", "Kodi")

	evt := core.NewEvent(core.EventPaymentLogged, "tx-1", map[string]interface{}{"amount": 1450})
	require.NoError(t, pub.Publish(context.Background(), evt))

	require.Len(t, ch.published, 1)
	p := ch.published[0]
	assert.Equal(t, "kodi.events", p.exchange)
	assert.Equal(t, core.EventPaymentLogged, p.key)
	assert.Equal(t, "application/json", p.msg.ContentType)
	assert.Equal(t, amqp.Persistent, p.msg.DeliveryMode)

	var got core.Event
	require.NoError(t, json.Unmarshal(p.msg.Body, &got))
	assert.Equal(t, "tx-1", got.SubjectID)

	require.NoError(t, pub.Close())
	assert.True(t, ch.closed)
	assert.Error(t, pub.Publish(context.Background(), evt))
}

func TestAMQPPublisher_PublishError(t *testing.T) {
	ch := &fakeChannel{err: amqp.ErrClosed}
	pub := newAMQPPublisher(ch, "kodi.events", "Kodi")

	err := pub.Publish(context.Background(), core.NewEvent(core.EventTenantApproved, "t1", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), core.EventTenantApproved)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	ctx := context.Background()
	_ = r.Publish(ctx, core.NewEvent(core.EventTenantApproved, "t1", nil))
	_ = r.Publish(ctx, core.NewEvent(core.EventTenantMovedOut, "t1", nil))

	assert.Equal(t, []string{core.EventTenantApproved, core.EventTenantMovedOut}, r.Names())
	assert.Len(t, r.Events(), 2)
}
