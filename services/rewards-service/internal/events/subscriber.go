package events

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	apperrors "github.com/burakmert236/goodswipe-rewards/common/errors"
	commonevents "github.com/burakmert236/goodswipe-rewards/common/events"
	"github.com/burakmert236/goodswipe-rewards/common/logger"
	"github.com/burakmert236/goodswipe-rewards/common/models"
	"github.com/burakmert236/goodswipe-rewards/common/natsjetstream"
	"github.com/burakmert236/goodswipe-rewards/services/rewards-service/internal/handler"
)

type route func(ctx context.Context, detail map[string]any) error

// decoded adapts a typed handler method to a route.
func decoded[T any](fn func(context.Context, T) error) route {
	return func(ctx context.Context, detail map[string]any) error {
		payload, err := commonevents.Decode[T](detail)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeObjectUnmarshalError, "failed to decode event detail")
		}
		return fn(ctx, payload)
	}
}

type EventSubscriber struct {
	subscriber *natsjetstream.Subscriber
	routes     map[string]route
	logger     *logger.Logger
}

func NewEventSubscriber(
	natsClient *natsjetstream.Client,
	commandHandler *handler.CommandHandler,
	logger *logger.Logger,
) *EventSubscriber {
	s := &EventSubscriber{
		logger: logger.ForComponent("event-subscriber"),
	}
	if natsClient != nil {
		s.subscriber = natsjetstream.NewSubscriber(natsClient, logger)
	}

	s.routes = map[string]route{
		commonevents.UserCreated:       decoded(commandHandler.HandleUserCreated),
		commonevents.UserUpdated:       decoded(commandHandler.HandleUserUpdated),
		commonevents.UserFollowed:      decoded(commandHandler.HandleUserFollowed),
		commonevents.UserPhoneVerified: decoded(commandHandler.HandlePhoneVerified),
		commonevents.UserEmailVerified: decoded(commandHandler.HandleEmailVerified),

		commonevents.VoteCreated:                decoded(commandHandler.HandleVoteCreated),
		commonevents.ContestSeasonCreated:       decoded(commandHandler.HandleContestSeasonCreated),
		commonevents.ContestSeasonVotingStarted: decoded(commandHandler.HandleContestSeasonVotingStarted),
		commonevents.ContestWinnersAnnounced:    decoded(commandHandler.HandleContestWinnersAnnounced),
		commonevents.ContestantJoined:           decoded(commandHandler.HandleContestantJoined),
		commonevents.ContestantDeleted:          decoded(commandHandler.HandleContestantDeleted),

		commonevents.RewardGranted: func(ctx context.Context, detail map[string]any) error {
			event, err := models.RewardEventFromMap(detail)
			if err != nil {
				return apperrors.Wrap(err, apperrors.CodeObjectUnmarshalError, "failed to decode reward granted event")
			}
			return commandHandler.HandleRewardGranted(ctx, event)
		},

		commonevents.RewardCustomCommand: decoded(commandHandler.HandleCustomReward),
	}
	return s
}

func (s *EventSubscriber) Start(ctx context.Context) error {
	s.logger.Info("Starting event subscriptions")

	consumers := []natsjetstream.ConsumerConfig{
		s.consumer(commonevents.UserEventsStream, "rewards-service-user-consumer", ""),
		s.consumer(commonevents.ContestEventsStream, "rewards-service-contest-consumer", ""),
		s.consumer(commonevents.RewardEventsStream, "rewards-service-reward-consumer", commonevents.RewardGranted),
		s.consumer(commonevents.RewardCommandsStream, "rewards-service-command-consumer", ""),
	}

	for _, cfg := range consumers {
		s.logger.Info("Subscribing to stream",
			"stream", cfg.StreamName,
			"consumer", cfg.ConsumerName,
		)
		if err := s.subscriber.Subscribe(ctx, cfg, s.handleMessage); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", cfg.StreamName, err)
		}
	}

	s.logger.Info("All event subscriptions started")
	return nil
}

func (s *EventSubscriber) Stop() error {
	if s.subscriber == nil {
		return nil
	}
	return s.subscriber.Stop()
}

func (s *EventSubscriber) consumer(stream, name, filter string) natsjetstream.ConsumerConfig {
	return natsjetstream.ConsumerConfig{
		StreamName:    stream,
		ConsumerName:  name,
		Durable:       name,
		FilterSubject: filter,
		AckPolicy:     "explicit",
	}
}

func (s *EventSubscriber) handleMessage(ctx context.Context, msg jetstream.Msg) error {
	return s.Dispatch(ctx, msg.Subject(), msg.Data())
}

// Dispatch decodes an enveloped payload and routes its detail by subject.
// Unknown subjects are logged and acknowledged.
func (s *EventSubscriber) Dispatch(ctx context.Context, subject string, data []byte) error {
	s.logger.Debug("Received event", logger.KeySubject, subject)

	handle, ok := s.routes[subject]
	if !ok {
		s.logger.Warn("Unknown event subject", logger.KeySubject, subject)
		return nil
	}

	payload, err := natsjetstream.UnmarshalStruct(data)
	if err != nil {
		return err
	}
	envelope, err := commonevents.Decode[commonevents.Envelope](payload)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeObjectUnmarshalError, "failed to decode event envelope")
	}

	if err := handle(ctx, envelope.Detail); err != nil {
		s.logger.Error("Failed to process event",
			logger.KeySubject, subject,
			"type", envelope.Type,
			"error", err,
		)
		return err
	}

	s.logger.Debug("Event processed", logger.KeySubject, subject, "type", envelope.Type)
	return nil
}
