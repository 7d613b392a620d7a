package events

import (
	"context"

	commonevents "github.com/burakmert236/goodswipe-rewards/common/events"
	"github.com/burakmert236/goodswipe-rewards/common/logger"
	"github.com/burakmert236/goodswipe-rewards/common/models"
	"github.com/burakmert236/goodswipe-rewards/common/natsjetstream"
	rewarderrors "github.com/burakmert236/goodswipe-rewards/services/rewards-service/internal/errors"
	"google.golang.org/protobuf/proto"
)

// MessagePublisher is implemented by *natsjetstream.Publisher.
type MessagePublisher interface {
	PublishProto(ctx context.Context, subject string, msg proto.Message) error
}

type EventPublisher struct {
	publisher MessagePublisher
	logger    *logger.Logger
}

func NewEventPublisher(publisher MessagePublisher, logger *logger.Logger) *EventPublisher {
	return &EventPublisher{
		publisher: publisher,
		logger:    logger.ForComponent("event-publisher"),
	}
}

func (p *EventPublisher) PublishRewardGranted(ctx context.Context, event models.RewardEvent) error {
	detail, err := event.ToMap()
	if err != nil {
		return err
	}

	envelope := commonevents.Envelope{Type: commonevents.EventTypeRewardGranted, Detail: detail}
	if err := p.publish(ctx, commonevents.RewardGranted, envelope.ToMap()); err != nil {
		return err
	}

	p.logger.Info("Published reward granted event", "rewardId", event.Id, "userId", event.UserId)
	return nil
}

func (p *EventPublisher) PublishCustomWinners(ctx context.Context, event commonevents.CustomWinnersEvent) error {
	envelope := commonevents.Envelope{Type: commonevents.EventTypeCustomWinners, Detail: event.ToMap()}
	if err := p.publish(ctx, commonevents.RewardCustomWinners, envelope.ToMap()); err != nil {
		return err
	}

	p.logger.Info("Published custom winners event", "contestId", event.ContestId, "winners", len(event.Winners))
	return nil
}

func (p *EventPublisher) SendNotification(ctx context.Context, notification commonevents.Notification) error {
	if err := p.publish(ctx, commonevents.NotificationSendCommand, notification.ToMap()); err != nil {
		return err
	}

	p.logger.Debug("Sent push notification command", "url", notification.Url, "participants", notification.Participants)
	return nil
}

func (p *EventPublisher) publish(ctx context.Context, subject string, payload map[string]any) error {
	msg, err := natsjetstream.NewStruct(payload)
	if err != nil {
		p.logger.Error("Failed to encode payload", "subject", subject, "error", err)
		return err
	}

	if err := p.publisher.PublishProto(ctx, subject, msg); err != nil {
		p.logger.Error("Failed to publish", "subject", subject, "error", err)
		return rewarderrors.PublishError(err, subject)
	}
	return nil
}
