package processor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeAcknowledger records the outcome signalled back to the broker
type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func delivery(body []byte) (amqp.Delivery, *fakeAcknowledger) {
	ack := &fakeAcknowledger{}
	return amqp.Delivery{Acknowledger: ack, Body: body}, ack
}

func TestHandleDelivery_AcksSavedRide(t *testing.T) {
	pipeline, saver, _ := testPipeline(t)
	consumer := NewConsumer(nil, pipeline, 1)
	ride := validRide()
	saved := *ride
	saved.ID = 1
	saver.On("Save", mock.Anything, mock.Anything).Return(&saved, nil)

	body, err := json.Marshal(ride)
	require.NoError(t, err)
	msg, ack := delivery(body)

	consumer.handleDelivery(context.Background(), msg)

	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
}

func TestHandleDelivery_DeadLettersMalformedMessage(t *testing.T) {
	pipeline, saver, _ := testPipeline(t)
	consumer := NewConsumer(nil, pipeline, 1)

	msg, ack := delivery([]byte("{not json"))

	consumer.handleDelivery(context.Background(), msg)

	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue)
	saver.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestHandleDelivery_DeadLettersInvalidRide(t *testing.T) {
	pipeline, saver, _ := testPipeline(t)
	consumer := NewConsumer(nil, pipeline, 1)
	ride := validRide()
	ride.Price = -5

	body, err := json.Marshal(ride)
	require.NoError(t, err)
	msg, ack := delivery(body)

	consumer.handleDelivery(context.Background(), msg)

	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue, "validation failures are final, not requeued")
	saver.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestHandleDelivery_RequeuesOnStoreFailure(t *testing.T) {
	pipeline, saver, _ := testPipeline(t)
	consumer := NewConsumer(nil, pipeline, 1)
	saver.On("Save", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	body, err := json.Marshal(validRide())
	require.NoError(t, err)
	msg, ack := delivery(body)

	consumer.handleDelivery(context.Background(), msg)

	assert.True(t, ack.nacked)
	assert.True(t, ack.requeue)
}

func TestHandleDelivery_RequeuesWhenBreakerOpen(t *testing.T) {
	pipeline, saver, breaker := testPipeline(t)
	consumer := NewConsumer(nil, pipeline, 1)

	saver.On("Save", mock.Anything, mock.Anything).Return(nil, errors.New("db down")).Times(5)
	for i := 0; i < 5; i++ {
		body, err := json.Marshal(validRide())
		require.NoError(t, err)
		msg, _ := delivery(body)
		consumer.handleDelivery(context.Background(), msg)
	}
	require.Equal(t, "open", breaker.State().String())

	body, err := json.Marshal(validRide())
	require.NoError(t, err)
	msg, ack := delivery(body)

	consumer.handleDelivery(context.Background(), msg)

	assert.True(t, ack.nacked)
	assert.True(t, ack.requeue)
	saver.AssertNumberOfCalls(t, "Save", 5)
}
