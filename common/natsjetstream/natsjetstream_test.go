package natsjetstream

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/burakmert236/goodswipe-rewards/common/errors"
	"github.com/burakmert236/goodswipe-rewards/common/logger"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

func TestConsumerConfig(t *testing.T) {
	tests := []struct {
		policy string
		want   jetstream.AckPolicy
	}{
		{"explicit", jetstream.AckExplicitPolicy},
		{"none", jetstream.AckNonePolicy},
		{"all", jetstream.AckAllPolicy},
		{"", jetstream.AckExplicitPolicy},
	}

	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			cfg := ConsumerConfig{
				StreamName:    "USER_EVENTS",
				ConsumerName:  "rewards",
				Durable:       "rewards",
				FilterSubject: "events.user.*",
				AckPolicy:     tt.policy,
				AckWait:       30 * time.Second,
				MaxDeliver:    5,
			}.jetStreamConfig()

			assert.Equal(t, tt.want, cfg.AckPolicy)
			assert.Equal(t, "rewards", cfg.Durable)
			assert.Equal(t, "events.user.*", cfg.FilterSubject)
			assert.Equal(t, 30*time.Second, cfg.AckWait)
			assert.Equal(t, 5, cfg.MaxDeliver)
		})
	}
}

func TestStructRoundTrip(t *testing.T) {
	payload, err := NewStruct(map[string]any{
		"id":     "u1",
		"reward": 25,
		"tags":   []any{"a", "b"},
		"reason": map[string]any{"type": "EMAIL_VERIFIED"},
	})
	require.NoError(t, err)

	data, err := proto.Marshal(payload)
	require.NoError(t, err)

	decoded, err := UnmarshalStruct(data)
	require.NoError(t, err)
	assert.Equal(t, "u1", decoded["id"])
	assert.Equal(t, float64(25), decoded["reward"])
	assert.Equal(t, []any{"a", "b"}, decoded["tags"])
	assert.Equal(t, map[string]any{"type": "EMAIL_VERIFIED"}, decoded["reason"])
}

func TestNewStructRejectsUnsupportedValues(t *testing.T) {
	_, err := NewStruct(map[string]any{"ch": make(chan int)})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeObjectMarshalError))
}

func TestUnmarshalStructRejectsGarbage(t *testing.T) {
	_, err := UnmarshalStruct([]byte{0xff, 0xff, 0xff})
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(apperrors.New(apperrors.CodeInvalidInput, "bad")))
	assert.True(t, IsPermanent(apperrors.New(apperrors.CodeAlreadyGranted, "dup")))
	assert.True(t, IsPermanent(apperrors.Wrap(
		apperrors.New(apperrors.CodeDatabaseError, "throttled"), apperrors.CodePartialGrant, "1 of 3 granted")))
	assert.False(t, IsPermanent(apperrors.New(apperrors.CodeNotFound, "account")))
	assert.False(t, IsPermanent(apperrors.New(apperrors.CodeDatabaseError, "throttled")))
	assert.False(t, IsPermanent(errors.New("network")))
}

// settledMsg records how a message was settled.
type settledMsg struct {
	jetstream.Msg
	outcome string
	delay   time.Duration
}

func (m *settledMsg) Subject() string { return "events.user.created" }

func (m *settledMsg) Ack() error {
	m.outcome = "ack"
	return nil
}

func (m *settledMsg) Term() error {
	m.outcome = "term"
	return nil
}

func (m *settledMsg) Nak() error {
	m.outcome = "nak"
	return nil
}

func (m *settledMsg) NakWithDelay(delay time.Duration) error {
	m.outcome, m.delay = "nak", delay
	return nil
}

func TestSettle(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		outcome string
		delay   time.Duration
	}{
		{"handled", nil, "ack", 0},
		{"invalid payload", apperrors.New(apperrors.CodeInvalidInput, "bad"), "term", 0},
		{"partial grant", apperrors.New(apperrors.CodePartialGrant, "partial"), "term", 0},
		{"store failure", apperrors.New(apperrors.CodeDatabaseError, "throttled"), "nak", transientRedeliveryDelay},
		{"missing account", apperrors.New(apperrors.CodeNotFound, "account"), "nak", 0},
	}

	s := NewSubscriber(nil, logger.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &settledMsg{}
			s.settle(msg, tt.err)
			assert.Equal(t, tt.outcome, msg.outcome)
			assert.Equal(t, tt.delay, msg.delay)
		})
	}
}
