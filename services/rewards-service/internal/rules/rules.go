package rules

import (
	"time"

	"github.com/burakmert236/goodswipe-rewards/common/models"
	rewarderrors "github.com/burakmert236/goodswipe-rewards/services/rewards-service/internal/errors"
)

// Rule computes the XP for a reason. Rules must not perform I/O.
type Rule func(reason models.RewardReason) (int, error)

// Fixed amounts
const (
	ContestVoterXp           = 1
	ContestantJoinedXp       = 10
	PhoneNumberVerifiedXp    = 25
	EmailVerifiedXp          = 25
	InviteAcceptedReferralXp = 2
	InviteAcceptedUserXp     = 2
	UserDailyVotesConsumedXp = 1
)

func fixed[R models.RewardReason](xp int) Rule {
	return typed(func(R) int { return xp })
}

func typed[R models.RewardReason](amount func(R) int) Rule {
	return func(reason models.RewardReason) (int, error) {
		r, ok := reason.(R)
		if !ok {
			var zero R
			return 0, rewarderrors.InvalidReasonError(zero.Type(), reason)
		}
		return amount(r), nil
	}
}

// ContestWinnerXp pays the first three places; every other position earns nothing.
func ContestWinnerXp(position int) int {
	switch position {
	case 1:
		return 100
	case 2:
		return 50
	case 3:
		return 20
	}
	return 0
}

// DefaultRules is the production reward table. AccountCreated is deprecated and has no rule.
func DefaultRules() map[models.RewardType]Rule {
	return map[models.RewardType]Rule{
		models.RewardContestVoter:           fixed[models.ContestVoterReason](ContestVoterXp),
		models.RewardContestantJoined:       fixed[models.ContestantJoinedReason](ContestantJoinedXp),
		models.RewardPhoneNumberVerified:    fixed[models.PhoneNumberVerifiedReason](PhoneNumberVerifiedXp),
		models.RewardEmailVerified:          fixed[models.EmailVerifiedReason](EmailVerifiedXp),
		models.RewardInviteAcceptedReferral: fixed[models.InviteAcceptedReferralReason](InviteAcceptedReferralXp),
		models.RewardInviteAcceptedUser:     fixed[models.InviteAcceptedUserReason](InviteAcceptedUserXp),
		models.RewardUserDailyVotesConsumed: fixed[models.UserDailyVotesConsumedReason](UserDailyVotesConsumedXp),
		models.RewardContestWinner: typed(func(r models.ContestWinnerReason) int {
			return ContestWinnerXp(r.Position)
		}),
		models.RewardCustom: typed(func(r models.CustomReason) int {
			return r.Reward
		}),
		models.RewardFollowerMilestoneReached: typed(func(r models.FollowerMilestoneReachedReason) int {
			return r.Milestone.Reward
		}),
		models.RewardReferredUserXpMilestoneReached: typed(func(r models.ReferredUserXpMilestoneReachedReason) int {
			return r.Milestone.Reward
		}),
	}
}

// Engine maps reward types to rules. It is read-only after construction.
type Engine struct {
	rules map[models.RewardType]Rule
}

func NewEngine() *Engine {
	return NewEngineWith(DefaultRules())
}

func NewEngineWith(rules map[models.RewardType]Rule) *Engine {
	copied := make(map[models.RewardType]Rule, len(rules))
	for t, r := range rules {
		copied[t] = r
	}
	return &Engine{rules: copied}
}

func (e *Engine) Has(rewardType models.RewardType) bool {
	_, ok := e.rules[rewardType]
	return ok
}

// Compute builds the reward for userId. It fails with NO_RULE_FOR_REASON when
// no rule is registered for the reason's type.
func (e *Engine) Compute(userId string, reason models.RewardReason, now time.Time) (models.Reward, error) {
	rule, ok := e.rules[reason.Type()]
	if !ok {
		return models.Reward{}, rewarderrors.NoRuleForReasonError(reason.Type())
	}

	xp, err := rule(reason)
	if err != nil {
		return models.Reward{}, err
	}
	if xp < 0 {
		xp = 0
	}

	return models.NewReward(userId, xp, reason, now), nil
}
