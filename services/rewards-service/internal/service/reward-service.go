package service

import (
	"context"
	"iter"
	"time"

	"github.com/burakmert236/goodswipe-rewards/common/database"
	"github.com/burakmert236/goodswipe-rewards/common/logger"
	"github.com/burakmert236/goodswipe-rewards/common/metrics"
	"github.com/burakmert236/goodswipe-rewards/common/models"
	rewarderrors "github.com/burakmert236/goodswipe-rewards/services/rewards-service/internal/errors"
	"github.com/burakmert236/goodswipe-rewards/services/rewards-service/internal/repository"
	"github.com/burakmert236/goodswipe-rewards/services/rewards-service/internal/rules"
)

const defaultDailyWindow = 24 * time.Hour

// RewardEventPublisher receives REWARD_GRANTED events after a grant commits.
type RewardEventPublisher interface {
	PublishRewardGranted(ctx context.Context, event models.RewardEvent) error
}

// IdentitySync mirrors account totals into the analytics side.
type IdentitySync interface {
	SyncAccount(ctx context.Context, account models.Account) error
}

// GrantResult is the outcome of a grant. Skipped grants carry no reward.
type GrantResult struct {
	Reward   *models.Reward
	Account  *models.Account
	Skipped  bool
	Warnings []string
}

type RewardService interface {
	GrantReward(ctx context.Context, userId string, reason models.RewardReason) (*GrantResult, error)

	AddAccount(ctx context.Context, userId, username, refUsername string) (*models.Account, error)
	GetAccount(ctx context.Context, userId string) (*models.Account, error)
	GetAccountByName(ctx context.Context, username string) (*models.Account, error)
	SaveAccountsBatch(ctx context.Context, accounts []models.Account) error

	GetXpMilestoneRewardsGranted(ctx context.Context, referrerId, sourceUserId string, bonus int) (bool, error)
	ListRewards(ctx context.Context, userId string) iter.Seq2[models.Reward, error]
}

type Option func(*rewardService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *rewardService) {
		s.now = now
	}
}

// WithDailyWindow sets how long a ContestantJoined reward blocks the next one.
func WithDailyWindow(window time.Duration) Option {
	return func(s *rewardService) {
		if window > 0 {
			s.dailyWindow = window
		}
	}
}

func WithMetrics(m *metrics.Manager) Option {
	return func(s *rewardService) {
		s.metrics = m
	}
}

func WithIdentitySync(identity IdentitySync) Option {
	return func(s *rewardService) {
		s.identity = identity
	}
}

type rewardService struct {
	accountRepo repository.AccountRepository
	rewardRepo  repository.RewardRepository
	grantRepo   repository.GrantRepository
	engine      *rules.Engine
	publisher   RewardEventPublisher
	identity    IdentitySync
	metrics     *metrics.Manager
	logger      *logger.Logger
	now         func() time.Time
	dailyWindow time.Duration
}

func NewRewardService(
	accountRepo repository.AccountRepository,
	rewardRepo repository.RewardRepository,
	grantRepo repository.GrantRepository,
	engine *rules.Engine,
	publisher RewardEventPublisher,
	logger *logger.Logger,
	opts ...Option,
) RewardService {
	s := &rewardService{
		accountRepo: accountRepo,
		rewardRepo:  rewardRepo,
		grantRepo:   grantRepo,
		engine:      engine,
		publisher:   publisher,
		logger:      logger.ForComponent("reward-service"),
		now:         func() time.Time { return time.Now().UTC() },
		dailyWindow: defaultDailyWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GrantReward loads the account, skips reasons that were already rewarded,
// computes the reward and commits the XP increment together with the reward
// record. A reward id that already exists fails with ALREADY_GRANTED.
func (s *rewardService) GrantReward(ctx context.Context, userId string, reason models.RewardReason) (*GrantResult, error) {
	if reason == nil {
		return nil, rewarderrors.ValidationError("reward reason is required")
	}
	rewardType := reason.Type()
	log := s.logger.ForGrant(userId, string(rewardType))

	account, err := s.accountRepo.Get(ctx, userId)
	if err != nil {
		s.metrics.RecordGrant(string(rewardType), metrics.OutcomeError)
		return nil, rewarderrors.DatabaseError(err, "failed to load account")
	}
	if account == nil {
		s.metrics.RecordGrant(string(rewardType), metrics.OutcomeError)
		return nil, rewarderrors.AccountNotFoundError(userId)
	}

	rewarded, err := s.alreadyRewarded(ctx, userId, reason)
	if err != nil {
		s.metrics.RecordGrant(string(rewardType), metrics.OutcomeError)
		return nil, rewarderrors.DatabaseError(err, "failed to check previous rewards")
	}
	if rewarded {
		log.Info("Reward already granted, skipping")
		s.metrics.RecordGrant(string(rewardType), metrics.OutcomeSkipped)
		return &GrantResult{Account: account, Skipped: true}, nil
	}

	now := s.now()
	reward, err := s.engine.Compute(userId, reason, now)
	if err != nil {
		log.Error("Failed to compute reward", "error", err)
		s.metrics.RecordGrant(string(rewardType), metrics.OutcomeError)
		return nil, err
	}

	account.GrantReward(reward, now)
	if err := s.grantRepo.Commit(ctx, *account, reward); err != nil {
		if database.IsConditionFailed(err, repository.OperationReward) {
			log.Warn("Reward insert rejected by condition", logger.KeyRewardId, reward.RewardId)
			s.metrics.RecordGrant(string(rewardType), metrics.OutcomeConflict)
			return nil, rewarderrors.RewardAlreadyGrantedError(reward.RewardId, err)
		}
		log.Error("Failed to commit reward", logger.KeyRewardId, reward.RewardId, "error", err)
		s.metrics.RecordGrant(string(rewardType), metrics.OutcomeError)
		return nil, err
	}

	s.metrics.RecordGrant(string(rewardType), metrics.OutcomeGranted)
	s.metrics.RecordXP(string(rewardType), reward.Amount)

	// The increment ran server side, so other grants may have landed since
	// the account was loaded.
	stored, err := s.accountRepo.Get(ctx, userId)
	synced := err == nil && stored != nil
	if synced {
		account = stored
	} else {
		log.Warn("Failed to reload account after grant", logger.KeyRewardId, reward.RewardId, "error", err)
	}
	log.Info("Reward granted", logger.KeyRewardId, reward.RewardId, "amount", reward.Amount, "xp", account.Xp)

	result := &GrantResult{Reward: &reward, Account: account}

	if err := s.publisher.PublishRewardGranted(ctx, reward.ToEvent()); err != nil {
		log.Error("Failed to publish reward granted event", logger.KeyRewardId, reward.RewardId, "error", err)
		result.Warnings = append(result.Warnings, rewarderrors.PublishError(err, "reward granted").Error())
	}

	if synced {
		s.syncIdentity(ctx, *account)
	}

	return result, nil
}

// alreadyRewarded runs the pre-commit eligibility checks. The transactional
// insert stays the authoritative guard for concurrent duplicates.
func (s *rewardService) alreadyRewarded(ctx context.Context, userId string, reason models.RewardReason) (bool, error) {
	switch r := reason.(type) {
	case models.FollowerMilestoneReachedReason:
		return s.rewardRepo.IsMilestoneRewardGranted(ctx, userId, r.Milestone.FollowerCount)
	case models.ContestantJoinedReason:
		since := s.now().Add(-s.dailyWindow)
		return s.rewardRepo.IsDailyRewardActive(ctx, userId, models.RewardContestantJoined, since)
	}

	if !reason.Type().IsOneTime() {
		return false, nil
	}
	existing, err := s.rewardRepo.LoadReward(ctx, userId, reason.Type())
	if err != nil {
		return false, err
	}
	return existing != nil, nil
}

func (s *rewardService) syncIdentity(ctx context.Context, account models.Account) {
	if s.identity == nil {
		return
	}
	if err := s.identity.SyncAccount(ctx, account); err != nil {
		s.logger.Error("Failed to sync account identity", "userId", account.UserId, "error", err)
	}
}
