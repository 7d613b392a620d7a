package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/burakmert236/goodswipe-rewards/common/database"
	"github.com/burakmert236/goodswipe-rewards/common/database/dynamotest"
	apperrors "github.com/burakmert236/goodswipe-rewards/common/errors"
	"github.com/burakmert236/goodswipe-rewards/common/logger"
	"github.com/burakmert236/goodswipe-rewards/common/models"
	"github.com/burakmert236/goodswipe-rewards/services/rewards-service/internal/repository"
	"github.com/burakmert236/goodswipe-rewards/services/rewards-service/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishRewardGranted(ctx context.Context, event models.RewardEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type mockIdentitySync struct {
	mock.Mock
}

func (m *mockIdentitySync) SyncAccount(ctx context.Context, account models.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// blindRewards hides previous rewards from the pre-commit checks.
type blindRewards struct {
	repository.RewardRepository
}

func (blindRewards) LoadReward(context.Context, string, models.RewardType) (*models.Reward, error) {
	return nil, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	table     *dynamotest.Table
	accounts  repository.AccountRepository
	rewards   repository.RewardRepository
	grants    repository.GrantRepository
	publisher *mockPublisher
	identity  *mockIdentitySync
	clock     *clock
	service   RewardService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	table := dynamotest.New()
	store := database.NewStore(table.Client("rewards"))
	accounts := repository.NewAccountRepository(store)
	rewards := repository.NewRewardRepository(store)

	h := &harness{
		table:     table,
		accounts:  accounts,
		rewards:   rewards,
		grants:    repository.NewGrantRepository(accounts, rewards, database.NewTransactionRepository(store)),
		publisher: &mockPublisher{},
		identity:  &mockIdentitySync{},
		clock:     &clock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
	}
	h.publisher.On("PublishRewardGranted", mock.Anything, mock.Anything).Return(nil).Maybe()
	h.identity.On("SyncAccount", mock.Anything, mock.Anything).Return(nil).Maybe()
	h.service = h.build(rewards)
	return h
}

func (h *harness) build(rewards repository.RewardRepository) RewardService {
	return NewRewardService(
		h.accounts,
		rewards,
		h.grants,
		rules.NewEngine(),
		h.publisher,
		logger.Nop(),
		WithClock(h.clock.Now),
		WithIdentitySync(h.identity),
	)
}

func (h *harness) account(t *testing.T, userId string) models.Account {
	t.Helper()
	account, err := h.accounts.Get(context.Background(), userId)
	require.NoError(t, err)
	require.NotNil(t, account)
	return *account
}

func (h *harness) addAccount(t *testing.T, userId, username string) {
	t.Helper()
	_, err := h.service.AddAccount(context.Background(), userId, username, "")
	require.NoError(t, err)
}

func TestGrantReward_OneTimeReasonIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addAccount(t, "u1", "alice")

	first, err := h.service.GrantReward(ctx, "u1", models.EmailVerifiedReason{})
	require.NoError(t, err)
	require.NotNil(t, first.Reward)
	assert.False(t, first.Skipped)
	assert.Equal(t, rules.EmailVerifiedXp, first.Reward.Amount)
	assert.Empty(t, first.Warnings)

	second, err := h.service.GrantReward(ctx, "u1", models.EmailVerifiedReason{})
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Nil(t, second.Reward)

	assert.Equal(t, rules.EmailVerifiedXp, h.account(t, "u1").Xp)
	assert.Len(t, h.table.Items(models.RewardTypename), 1)
	h.publisher.AssertNumberOfCalls(t, "PublishRewardGranted", 1)
}

func TestGrantReward_ConcurrentOneTimeGrantsCommitOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addAccount(t, "u1", "alice")

	const workers = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		granted  int
		rejected int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := h.service.GrantReward(ctx, "u1", models.PhoneNumberVerifiedReason{})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyGranted), err.Error())
				rejected++
			case result.Skipped:
				rejected++
			default:
				granted++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, granted)
	assert.Equal(t, workers-1, rejected)
	assert.Equal(t, rules.PhoneNumberVerifiedXp, h.account(t, "u1").Xp)
	assert.Len(t, h.table.Items(models.RewardTypename), 1)
}

func TestGrantReward_TransactionConflictIsAlreadyGranted(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addAccount(t, "u1", "alice")
	blind := h.build(blindRewards{h.rewards})

	_, err := blind.GrantReward(ctx, "u1", models.InviteAcceptedUserReason{})
	require.NoError(t, err)

	_, err = blind.GrantReward(ctx, "u1", models.InviteAcceptedUserReason{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyGranted))

	var txErr *database.TransactionError
	require.ErrorAs(t, err, &txErr)
	failed, ok := txErr.FailedOperation()
	require.True(t, ok)
	assert.Equal(t, repository.OperationReward, failed.Operation)

	assert.Equal(t, rules.InviteAcceptedUserXp, h.account(t, "u1").Xp)
}

func TestGrantReward_DailyGate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addAccount(t, "u1", "alice")

	first, err := h.service.GrantReward(ctx, "u1", models.ContestantJoinedReason{ContestId: "c1"})
	require.NoError(t, err)
	assert.False(t, first.Skipped)

	h.clock.Advance(23 * time.Hour)
	second, err := h.service.GrantReward(ctx, "u1", models.ContestantJoinedReason{ContestId: "c2"})
	require.NoError(t, err)
	assert.True(t, second.Skipped)

	h.clock.Advance(time.Hour + time.Second)
	third, err := h.service.GrantReward(ctx, "u1", models.ContestantJoinedReason{ContestId: "c3"})
	require.NoError(t, err)
	assert.False(t, third.Skipped)

	assert.Equal(t, 2*rules.ContestantJoinedXp, h.account(t, "u1").Xp)
}

func TestGrantReward_DailyWindowIsConfigurable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addAccount(t, "u1", "alice")
	svc := NewRewardService(h.accounts, h.rewards, h.grants, rules.NewEngine(), h.publisher, logger.Nop(),
		WithClock(h.clock.Now), WithDailyWindow(time.Hour))

	_, err := svc.GrantReward(ctx, "u1", models.ContestantJoinedReason{ContestId: "c1"})
	require.NoError(t, err)

	h.clock.Advance(2 * time.Hour)
	result, err := svc.GrantReward(ctx, "u1", models.ContestantJoinedReason{ContestId: "c2"})
	require.NoError(t, err)
	assert.False(t, result.Skipped)
}

func TestGrantReward_FollowerMilestoneOncePerThreshold(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addAccount(t, "u1", "alice")

	five := models.FollowerMilestoneReachedReason{Milestone: models.FollowerMilestone{FollowerCount: 5, Reward: 4}}
	ten := models.FollowerMilestoneReachedReason{Milestone: models.FollowerMilestone{FollowerCount: 10, Reward: 5}}

	for _, tc := range []struct {
		reason  models.RewardReason
		skipped bool
	}{
		{five, false},
		{five, true},
		{ten, false},
	} {
		result, err := h.service.GrantReward(ctx, "u1", tc.reason)
		require.NoError(t, err)
		assert.Equal(t, tc.skipped, result.Skipped)
	}

	assert.Equal(t, 9, h.account(t, "u1").Xp)
}

func TestGrantReward_RepeatableReasons(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addAccount(t, "u1", "alice")

	custom := models.CustomReason{ActivityMessage: "great post", Reward: 15}
	for range 2 {
		result, err := h.service.GrantReward(ctx, "u1", custom)
		require.NoError(t, err)
		assert.False(t, result.Skipped)
	}

	result, err := h.service.GrantReward(ctx, "u1", models.ContestWinnerReason{ContestId: "c1", Position: 2})
	require.NoError(t, err)
	assert.Equal(t, 50, result.Reward.Amount)

	assert.Equal(t, 80, h.account(t, "u1").Xp)
	assert.Len(t, h.table.Items(models.RewardTypename), 3)
}

func TestGrantReward_AccountNotFound(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.GrantReward(context.Background(), "ghost", models.ContestVoterReason{ContestId: "c1"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.Empty(t, h.table.Items(models.RewardTypename))
}

func TestGrantReward_NoRuleForReason(t *testing.T) {
	h := newHarness(t)
	h.addAccount(t, "u1", "alice")

	_, err := h.service.GrantReward(context.Background(), "u1", models.AccountCreatedReason{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNoRuleForReason))
	assert.Equal(t, 0, h.account(t, "u1").Xp)
}

func TestGrantReward_NilReason(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.GrantReward(context.Background(), "u1", nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestGrantReward_StoreErrorsPropagate(t *testing.T) {
	h := newHarness(t)
	h.addAccount(t, "u1", "alice")
	boom := errors.New("throughput exceeded")
	h.table.FailNext("TransactWriteItems", boom)

	_, err := h.service.GrantReward(context.Background(), "u1", models.ContestVoterReason{ContestId: "c1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, apperrors.HasCode(err, apperrors.CodeAlreadyGranted))
}

func TestGrantReward_PublishFailureIsAWarning(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addAccount(t, "u1", "alice")

	publisher := &mockPublisher{}
	publisher.On("PublishRewardGranted", mock.Anything, mock.Anything).Return(errors.New("nats down"))
	svc := NewRewardService(h.accounts, h.rewards, h.grants, rules.NewEngine(), publisher, logger.Nop(),
		WithClock(h.clock.Now))

	result, err := svc.GrantReward(ctx, "u1", models.ContestVoterReason{ContestId: "c1"})
	require.NoError(t, err)
	require.NotNil(t, result.Reward)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "nats down")
	assert.Equal(t, rules.ContestVoterXp, h.account(t, "u1").Xp)
}

func TestGrantReward_PublishesEventAndSyncsIdentity(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addAccount(t, "u1", "alice")

	publisher := &mockPublisher{}
	identity := &mockIdentitySync{}
	publisher.On("PublishRewardGranted", mock.Anything, mock.MatchedBy(func(e models.RewardEvent) bool {
		return e.UserId == "u1" && e.Reward == rules.ContestVoterXp && e.Reason == models.ContestVoterReason{ContestId: "c1"}
	})).Return(nil).Once()
	identity.On("SyncAccount", mock.Anything, mock.MatchedBy(func(a models.Account) bool {
		return a.UserId == "u1" && a.Xp == rules.ContestVoterXp
	})).Return(errors.New("redis down")).Once()

	svc := NewRewardService(h.accounts, h.rewards, h.grants, rules.NewEngine(), publisher, logger.Nop(),
		WithClock(h.clock.Now), WithIdentitySync(identity))

	result, err := svc.GrantReward(ctx, "u1", models.ContestVoterReason{ContestId: "c1"})
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, h.clock.Now(), result.Account.UpdatedAt)

	publisher.AssertExpectations(t)
	identity.AssertExpectations(t)
}

// racingGrants commits another grant right after the wrapped commit.
type racingGrants struct {
	repository.GrantRepository
	after func()
}

func (g *racingGrants) Commit(ctx context.Context, account models.Account, reward models.Reward) error {
	if err := g.GrantRepository.Commit(ctx, account, reward); err != nil {
		return err
	}
	if g.after != nil {
		after := g.after
		g.after = nil
		after()
	}
	return nil
}

func TestGrantReward_SyncsStoredXp(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addAccount(t, "u1", "alice")

	grants := &racingGrants{
		GrantRepository: h.grants,
		after: func() {
			_, err := h.service.GrantReward(ctx, "u1", models.PhoneNumberVerifiedReason{})
			require.NoError(t, err)
		},
	}
	identity := &mockIdentitySync{}
	total := rules.EmailVerifiedXp + rules.PhoneNumberVerifiedXp
	identity.On("SyncAccount", mock.Anything, mock.MatchedBy(func(a models.Account) bool {
		return a.UserId == "u1" && a.Xp == total
	})).Return(nil).Once()

	svc := NewRewardService(h.accounts, h.rewards, grants, rules.NewEngine(), h.publisher, logger.Nop(),
		WithClock(h.clock.Now), WithIdentitySync(identity))

	result, err := svc.GrantReward(ctx, "u1", models.EmailVerifiedReason{})
	require.NoError(t, err)
	assert.Equal(t, total, result.Account.Xp)
	identity.AssertExpectations(t)
}

func TestGrantReward_SkipsSyncWhenReloadFails(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addAccount(t, "u1", "alice")

	identity := &mockIdentitySync{}
	svc := NewRewardService(h.accounts, h.rewards, h.grants, rules.NewEngine(), h.publisher, logger.Nop(),
		WithClock(h.clock.Now), WithIdentitySync(identity))

	// The first GetItem loads the account, the second reloads it.
	h.table.FailAfter("GetItem", 1, errors.New("timeout"))

	result, err := svc.GrantReward(ctx, "u1", models.EmailVerifiedReason{})
	require.NoError(t, err)
	assert.Equal(t, rules.EmailVerifiedXp, result.Account.Xp)
	identity.AssertNotCalled(t, "SyncAccount", mock.Anything, mock.Anything)
}
