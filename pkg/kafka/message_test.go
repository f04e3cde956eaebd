package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageBuilder(t *testing.T) {
	ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	msg, err := NewMessage().
		WithKey("slot-1").
		WithEventType("booking.confirmed").
		WithSchemaVersion("1").
		WithSource("bookings").
		WithCorrelationID("b1").
		WithTimestamp(ts).
		WithValue(struct {
			ID string `json:"id"`
		}{ID: "b1"}).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "slot-1", msg.Key)
	assert.Equal(t, "booking.confirmed", msg.GetEventType())
	assert.Equal(t, "b1", msg.GetCorrelationID())
	assert.Equal(t, "1", msg.Headers[HeaderSchemaVersion])
	assert.Equal(t, "bookings", msg.Headers[HeaderSource])
	assert.Equal(t, "2026-03-02T09:00:00Z", msg.Headers[HeaderTimestamp])
	assert.NotEmpty(t, msg.GetEventID())

	var decoded struct {
		ID string `json:"id"`
	}
	require.NoError(t, msg.DecodeValue(&decoded))
	assert.Equal(t, "b1", decoded.ID)
}

func TestMessageBuilder_EncodeError(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestMessageBuilder_EmptyCorrelationIDIsOmitted(t *testing.T) {
	msg, err := NewMessage().WithKey("k").WithCorrelationID("").WithValue("v").Build()
	require.NoError(t, err)

	_, ok := msg.Headers[HeaderCorrelationID]
	assert.False(t, ok)
}
