package service

import (
	"context"
	"iter"

	"github.com/burakmert236/goodswipe-rewards/common/models"
	rewarderrors "github.com/burakmert236/goodswipe-rewards/services/rewards-service/internal/errors"
)

// AddAccount creates the account or updates its profile in place. XP is never
// rewritten here, so it cannot undo a grant committed in between.
func (s *rewardService) AddAccount(ctx context.Context, userId, username, refUsername string) (*models.Account, error) {
	if userId == "" || username == "" {
		return nil, rewarderrors.ValidationError("account id and username are required")
	}

	account := models.NewAccount(userId, username, refUsername, s.now())
	created, err := s.accountRepo.Create(ctx, account)
	if err != nil {
		return nil, rewarderrors.DatabaseError(err, "failed to create account")
	}

	if !created {
		updated, err := s.accountRepo.UpdateProfile(ctx, account)
		if err != nil {
			return nil, rewarderrors.DatabaseError(err, "failed to update account")
		}
		account = *updated
	}
	s.logger.Debug("Account saved", "userId", userId, "created", created, "xp", account.Xp)

	s.syncIdentity(ctx, account)

	return &account, nil
}

func (s *rewardService) GetAccount(ctx context.Context, userId string) (*models.Account, error) {
	account, err := s.accountRepo.Get(ctx, userId)
	if err != nil {
		return nil, rewarderrors.DatabaseError(err, "failed to load account")
	}
	if account == nil {
		return nil, rewarderrors.AccountNotFoundError(userId)
	}
	return account, nil
}

func (s *rewardService) GetAccountByName(ctx context.Context, username string) (*models.Account, error) {
	account, err := s.accountRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, rewarderrors.DatabaseError(err, "failed to load account by username")
	}
	if account == nil {
		return nil, rewarderrors.AccountByNameNotFoundError(username)
	}
	return account, nil
}

func (s *rewardService) SaveAccountsBatch(ctx context.Context, accounts []models.Account) error {
	if err := s.accountRepo.SaveBatch(ctx, accounts); err != nil {
		return rewarderrors.DatabaseError(err, "failed to save accounts")
	}
	return nil
}

// GetXpMilestoneRewardsGranted reports whether referrerId may still earn bonus
// through sourceUserId: true when no referral milestone was granted yet or the
// latest one paid less than bonus.
func (s *rewardService) GetXpMilestoneRewardsGranted(ctx context.Context, referrerId, sourceUserId string, bonus int) (bool, error) {
	last, err := s.rewardRepo.LoadXpMilestoneRewardGranted(ctx, referrerId, sourceUserId)
	if err != nil {
		return false, rewarderrors.DatabaseError(err, "failed to load referral milestone rewards")
	}
	return last == nil || last.Amount < bonus, nil
}

func (s *rewardService) ListRewards(ctx context.Context, userId string) iter.Seq2[models.Reward, error] {
	return s.rewardRepo.ListRewards(ctx, userId)
}
