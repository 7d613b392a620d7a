package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/burakmert236/goodswipe-rewards/common/database"
	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
)

const RewardTypename = "REWARD"

// rewardNamespace seeds name-based reward ids.
var rewardNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("goodswipe.rewards"))

// Reward is immutable once created.
type Reward struct {
	RewardId  string
	UserId    string
	Amount    int
	Timestamp time.Time
	Details   RewardReason
}

func (r Reward) GetID() string {
	return r.RewardId
}

func (r Reward) Type() RewardType {
	if r.Details == nil {
		return ""
	}
	return r.Details.Type()
}

func NewReward(userId string, amount int, reason RewardReason, now time.Time) Reward {
	return Reward{
		RewardId:  RewardIdFor(userId, reason),
		UserId:    userId,
		Amount:    amount,
		Timestamp: database.TruncateTime(now),
		Details:   reason,
	}
}

// RewardIdFor derives a stable id for reasons that may be granted only once
// per dedup key, and a random id otherwise. Two grants with the same stable id
// collide on the primary key.
func RewardIdFor(userId string, reason RewardReason) string {
	name, ok := dedupName(userId, reason)
	if !ok {
		return uuid.NewString()
	}
	return uuid.NewSHA1(rewardNamespace, []byte(name)).String()
}

func dedupName(userId string, reason RewardReason) (string, bool) {
	if reason == nil {
		return "", false
	}

	parts := []string{string(reason.Type()), userId}
	switch r := reason.(type) {
	case FollowerMilestoneReachedReason:
		parts = append(parts, strconv.Itoa(r.Milestone.FollowerCount))
	case ReferredUserXpMilestoneReachedReason:
		parts = append(parts, r.SourceUserId, strconv.Itoa(r.Milestone.XpCount))
	case ContestWinnerReason:
		parts = append(parts, r.ContestId, strconv.Itoa(r.Position))
	default:
		if !reason.Type().IsOneTime() {
			return "", false
		}
	}
	return strings.Join(parts, "|"), true
}

// sourceUserId is the referred user behind a referral milestone, empty for other reasons.
func (r Reward) sourceUserId() string {
	if d, ok := r.Details.(ReferredUserXpMilestoneReachedReason); ok {
		return d.SourceUserId
	}
	return ""
}

// RewardEvent is the REWARD_GRANTED payload.
type RewardEvent struct {
	Id        string
	UserId    string
	Reward    int
	Timestamp time.Time
	Reason    RewardReason
}

func (r Reward) ToEvent() RewardEvent {
	return RewardEvent{
		Id:        r.RewardId,
		UserId:    r.UserId,
		Reward:    r.Amount,
		Timestamp: r.Timestamp,
		Reason:    r.Details,
	}
}

type rewardEventPayload struct {
	Id        string         `mapstructure:"id"`
	UserId    string         `mapstructure:"userId"`
	Reward    int            `mapstructure:"reward"`
	Timestamp string         `mapstructure:"timestamp"`
	Reason    map[string]any `mapstructure:"reason"`
}

// ToMap renders the event with its reason tagged by type and an ISO-8601 timestamp.
func (e RewardEvent) ToMap() (map[string]any, error) {
	reason, err := EncodeReason(e.Reason)
	if err != nil {
		return nil, err
	}

	out := map[string]any{}
	err = mapstructure.Decode(rewardEventPayload{
		Id:        e.Id,
		UserId:    e.UserId,
		Reward:    e.Reward,
		Timestamp: database.FormatTime(e.Timestamp),
		Reason:    reason,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reward event: %w", err)
	}
	return out, nil
}

func RewardEventFromMap(in map[string]any) (RewardEvent, error) {
	var payload rewardEventPayload
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &payload,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return RewardEvent{}, err
	}
	if err := decoder.Decode(in); err != nil {
		return RewardEvent{}, fmt.Errorf("failed to decode reward event: %w", err)
	}

	reason, err := DecodeReason(payload.Reason)
	if err != nil {
		return RewardEvent{}, err
	}
	ts, err := database.ParseTime(payload.Timestamp)
	if err != nil {
		return RewardEvent{}, err
	}

	return RewardEvent{
		Id:        payload.Id,
		UserId:    payload.UserId,
		Reward:    payload.Reward,
		Timestamp: ts,
		Reason:    reason,
	}, nil
}

type rewardItem struct {
	Id        string         `dynamodbav:"id"`
	UserId    string         `dynamodbav:"userId"`
	Reward    int            `dynamodbav:"reward"`
	Timestamp string         `dynamodbav:"timestamp"`
	Details   map[string]any `dynamodbav:"details"`
}

// Key handlers
func RewardUserKey(userId string) string {
	return database.ComposeKey(RewardTypename, userId)
}

func RewardTypeKey(rewardType RewardType) string {
	return database.ComposeKey(RewardTypename, string(rewardType))
}

// ReferralMilestonePrefix addresses g3 sort keys of referral milestones earned through sourceUserId.
func ReferralMilestonePrefix(sourceUserId string) string {
	return database.ComposeKey(RewardTypename, string(RewardReferredUserXpMilestoneReached), sourceUserId)
}

func NewRewardAdapter() *database.Adapter[Reward] {
	return database.NewAdapter(database.AdapterConfig[Reward]{
		Typename: RewardTypename,
		Primary: database.KeyGenerator[Reward]{
			Hash: database.StandardKey[Reward],
			Sort: database.StandardKey[Reward],
		},
		Global: []*database.KeyGenerator[Reward]{
			// g1k: a user's rewards ordered by time
			{
				Hash: func(typename string, r Reward) string { return database.ComposeKey(typename, r.UserId) },
				Sort: func(typename string, r Reward) string {
					return database.ComposeKey(typename, database.FormatTime(r.Timestamp))
				},
			},
			// g2k: existence checks by (type, user)
			{
				Hash: func(typename string, r Reward) string { return database.ComposeKey(typename, string(r.Type())) },
				Sort: func(typename string, r Reward) string { return database.ComposeKey(typename, r.UserId) },
			},
			// g3k: referral milestones by (user, type#source#time)
			{
				Hash: func(typename string, r Reward) string { return database.ComposeKey(typename, r.UserId) },
				Sort: func(typename string, r Reward) string {
					return database.ComposeKey(typename, string(r.Type()), r.sourceUserId(), database.FormatTime(r.Timestamp))
				},
			},
		},
		Encode: func(r Reward) (database.Item, error) {
			details, err := EncodeReason(r.Details)
			if err != nil {
				return nil, err
			}
			return database.MarshalItem(rewardItem{
				Id:        r.RewardId,
				UserId:    r.UserId,
				Reward:    r.Amount,
				Timestamp: database.FormatTime(r.Timestamp),
				Details:   details,
			})
		},
		Decode: func(item database.Item) (Reward, error) {
			row, err := database.UnmarshalItem[rewardItem](item)
			if err != nil {
				return Reward{}, err
			}
			details, err := DecodeReason(row.Details)
			if err != nil {
				return Reward{}, err
			}
			ts, err := database.ParseTime(row.Timestamp)
			if err != nil {
				return Reward{}, err
			}
			return Reward{
				RewardId:  row.Id,
				UserId:    row.UserId,
				Amount:    row.Reward,
				Timestamp: ts,
				Details:   details,
			}, nil
		},
	})
}
