package repository

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/burakmert236/goodswipe-rewards/common/database"
	"github.com/burakmert236/goodswipe-rewards/common/models"
)

type RewardRepository interface {
	LoadReward(ctx context.Context, userId string, rewardType models.RewardType) (*models.Reward, error)
	IsDailyRewardActive(ctx context.Context, userId string, rewardType models.RewardType, since time.Time) (bool, error)
	IsMilestoneRewardGranted(ctx context.Context, userId string, followerCount int) (bool, error)
	LoadXpMilestoneRewardGranted(ctx context.Context, userId, sourceUserId string) (*models.Reward, error)
	ListRewards(ctx context.Context, userId string) iter.Seq2[models.Reward, error]

	// Transactions
	GetTransactionForAddingReward(reward models.Reward) (types.Put, error)
}

type rewardRepo struct {
	rewards *database.Collection[models.Reward]
}

func NewRewardRepository(store *database.Store) RewardRepository {
	return &rewardRepo{rewards: database.NewCollection(store, models.NewRewardAdapter())}
}

func byTypeAndUser(userId string, rewardType models.RewardType) database.Query {
	return database.Query{
		Index: 2,
		Hash:  models.RewardTypeKey(rewardType),
		Sort:  database.SortEquals(models.RewardUserKey(userId)),
	}
}

func (r *rewardRepo) LoadReward(ctx context.Context, userId string, rewardType models.RewardType) (*models.Reward, error) {
	q := byTypeAndUser(userId, rewardType)
	q.Limit = 1

	reward, found, err := r.rewards.First(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to load reward: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &reward, nil
}

// IsDailyRewardActive reports whether rewardType was granted to userId at or after since.
func (r *rewardRepo) IsDailyRewardActive(ctx context.Context, userId string, rewardType models.RewardType, since time.Time) (bool, error) {
	active, err := r.rewards.Any(ctx, byTypeAndUser(userId, rewardType), func(reward models.Reward) bool {
		return !reward.Timestamp.Before(since)
	})
	if err != nil {
		return false, fmt.Errorf("failed to check daily reward: %w", err)
	}
	return active, nil
}

func (r *rewardRepo) IsMilestoneRewardGranted(ctx context.Context, userId string, followerCount int) (bool, error) {
	q := byTypeAndUser(userId, models.RewardFollowerMilestoneReached)
	granted, err := r.rewards.Any(ctx, q, func(reward models.Reward) bool {
		details, ok := reward.Details.(models.FollowerMilestoneReachedReason)
		return ok && details.Milestone.FollowerCount == followerCount
	})
	if err != nil {
		return false, fmt.Errorf("failed to check milestone reward: %w", err)
	}
	return granted, nil
}

// LoadXpMilestoneRewardGranted returns the latest referral milestone userId earned through sourceUserId.
func (r *rewardRepo) LoadXpMilestoneRewardGranted(ctx context.Context, userId, sourceUserId string) (*models.Reward, error) {
	reward, found, err := r.rewards.Last(ctx, database.Query{
		Index: 3,
		Hash:  models.RewardUserKey(userId),
		Sort:  database.SortBeginsWith(models.ReferralMilestonePrefix(sourceUserId) + "#"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load xp milestone rewards: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &reward, nil
}

// ListRewards yields a user's rewards newest first.
func (r *rewardRepo) ListRewards(ctx context.Context, userId string) iter.Seq2[models.Reward, error] {
	return r.rewards.Query(ctx, database.Query{
		Index:   1,
		Hash:    models.RewardUserKey(userId),
		Reverse: true,
	})
}

func (r *rewardRepo) GetTransactionForAddingReward(reward models.Reward) (types.Put, error) {
	put, err := r.rewards.PutIfAbsent(reward)
	if err != nil {
		return types.Put{}, fmt.Errorf("failed to build reward put: %w", err)
	}
	return put, nil
}
