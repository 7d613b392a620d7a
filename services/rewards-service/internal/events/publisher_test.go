package events

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/burakmert236/goodswipe-rewards/common/errors"
	commonevents "github.com/burakmert236/goodswipe-rewards/common/events"
	"github.com/burakmert236/goodswipe-rewards/common/logger"
	"github.com/burakmert236/goodswipe-rewards/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type published struct {
	subject string
	payload map[string]any
}

type recordingPublisher struct {
	messages []published
	err      error
}

func (r *recordingPublisher) PublishProto(_ context.Context, subject string, msg proto.Message) error {
	if r.err != nil {
		return r.err
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		return err
	}
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return err
	}
	r.messages = append(r.messages, published{subject: subject, payload: s.AsMap()})
	return nil
}

func TestPublishRewardGranted(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewEventPublisher(rec, logger.Nop())

	reward := models.NewReward("u1", 4, models.FollowerMilestoneReachedReason{
		Milestone: models.FollowerMilestone{FollowerCount: 5, Reward: 4},
	}, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	require.NoError(t, p.PublishRewardGranted(context.Background(), reward.ToEvent()))
	require.Len(t, rec.messages, 1)
	assert.Equal(t, commonevents.RewardGranted, rec.messages[0].subject)

	envelope, err := commonevents.Decode[commonevents.Envelope](rec.messages[0].payload)
	require.NoError(t, err)
	assert.Equal(t, commonevents.EventTypeRewardGranted, envelope.Type)

	event, err := models.RewardEventFromMap(envelope.Detail)
	require.NoError(t, err)
	assert.Equal(t, reward.ToEvent(), event)
}

func TestPublishCustomWinners(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewEventPublisher(rec, logger.Nop())

	err := p.PublishCustomWinners(context.Background(), commonevents.CustomWinnersEvent{
		ContestId:   "c1",
		PostMessage: "well done",
		Winners:     []commonevents.CustomWinner{{UserId: "u1", Username: "alice", ContestantId: "p1", ContestantCreatedAt: 42}},
	})
	require.NoError(t, err)
	require.Len(t, rec.messages, 1)
	assert.Equal(t, commonevents.RewardCustomWinners, rec.messages[0].subject)

	detail := rec.messages[0].payload["detail"].(map[string]any)
	assert.Equal(t, "c1", detail["contestId"])
	winners := detail["winners"].([]any)
	require.Len(t, winners, 1)
	assert.Equal(t, float64(42), winners[0].(map[string]any)["contestantCreatedAt"])
}

func TestSendNotification(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewEventPublisher(rec, logger.Nop())

	require.NoError(t, p.SendNotification(context.Background(), commonevents.Notification{
		Message:      "You earned 2XP",
		Url:          "profile/u2",
		Participants: []string{"u1"},
	}))

	require.Len(t, rec.messages, 1)
	msg := rec.messages[0]
	assert.Equal(t, commonevents.NotificationSendCommand, msg.subject)
	assert.Equal(t, commonevents.CommandTypeSendPushNotification, msg.payload["command"])
	assert.Equal(t, map[string]any{
		"message":      "You earned 2XP",
		"url":          "profile/u2",
		"participants": []any{"u1"},
	}, msg.payload["details"])
}

func TestPublishFailureIsPublishError(t *testing.T) {
	rec := &recordingPublisher{err: errors.New("no responders")}
	p := NewEventPublisher(rec, logger.Nop())

	err := p.SendNotification(context.Background(), commonevents.Notification{Message: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeEventPublishError))
}
