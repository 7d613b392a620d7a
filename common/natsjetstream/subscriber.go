package natsjetstream

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/burakmert236/goodswipe-rewards/common/errors"
	"github.com/burakmert236/goodswipe-rewards/common/logger"
	"github.com/nats-io/nats.go/jetstream"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// transientRedeliveryDelay holds back redelivery of messages that failed on a
// store or broker call.
const transientRedeliveryDelay = 2 * time.Second

type Subscriber struct {
	client *Client
	logger *logger.Logger

	mu       sync.Mutex
	consumes []jetstream.ConsumeContext
}

type MessageHandler func(ctx context.Context, msg jetstream.Msg) error

func NewSubscriber(client *Client, log *logger.Logger) *Subscriber {
	return &Subscriber{
		client: client,
		logger: log.ForComponent("nats-subscriber"),
	}
}

func (s *Subscriber) Subscribe(ctx context.Context, cfg ConsumerConfig, handler MessageHandler) error {
	consumer, err := s.client.js.CreateOrUpdateConsumer(ctx, cfg.StreamName, cfg.jetStreamConfig())
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	consume, err := consumer.Consume(func(msg jetstream.Msg) {
		s.settle(msg, handler(ctx, msg))
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming %s: %w", cfg.StreamName, err)
	}

	s.mu.Lock()
	s.consumes = append(s.consumes, consume)
	s.mu.Unlock()
	return nil
}

// settle acks handled messages and terminates ones that can never succeed.
// Everything else is redelivered, after a delay when a dependency failed.
func (s *Subscriber) settle(msg jetstream.Msg, err error) {
	var ackErr error
	switch {
	case err == nil:
		ackErr = msg.Ack()
	case IsPermanent(err):
		s.logger.Warn("Dropping message", logger.KeySubject, msg.Subject(), "error", err)
		ackErr = msg.Term()
	case apperrors.IsTransient(err):
		s.logger.Warn("Dependency failed, redelivering later", logger.KeySubject, msg.Subject(), "error", err)
		ackErr = msg.NakWithDelay(transientRedeliveryDelay)
	default:
		s.logger.Error("Error handling message", logger.KeySubject, msg.Subject(), "error", err)
		ackErr = msg.Nak()
	}
	if ackErr != nil {
		s.logger.Error("Failed to settle message", logger.KeySubject, msg.Subject(), "error", ackErr)
	}
}

// Stop stops every consumer started by Subscribe.
func (s *Subscriber) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, consume := range s.consumes {
		consume.Stop()
	}
	s.consumes = nil
	return nil
}

// IsPermanent reports whether redelivering the message that produced err
// cannot change the outcome, or would pay some rewards twice.
func IsPermanent(err error) bool {
	return apperrors.HasCode(err, apperrors.CodeInvalidInput) ||
		apperrors.HasCode(err, apperrors.CodeAlreadyGranted) ||
		apperrors.HasCode(err, apperrors.CodePartialGrant) ||
		apperrors.HasCode(err, apperrors.CodeNoRuleForReason) ||
		apperrors.HasCode(err, apperrors.CodeObjectUnmarshalError)
}

func UnmarshalProto(msg jetstream.Msg, pb proto.Message) error {
	return proto.Unmarshal(msg.Data(), pb)
}

// UnmarshalStruct decodes a protobuf Struct payload into a plain map.
func UnmarshalStruct(data []byte) (map[string]any, error) {
	var payload structpb.Struct
	if err := proto.Unmarshal(data, &payload); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeObjectUnmarshalError, "failed to unmarshal struct payload")
	}
	return payload.AsMap(), nil
}
