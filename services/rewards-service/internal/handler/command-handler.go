package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/burakmert236/goodswipe-rewards/common/errors"
	commonevents "github.com/burakmert236/goodswipe-rewards/common/events"
	"github.com/burakmert236/goodswipe-rewards/common/logger"
	"github.com/burakmert236/goodswipe-rewards/common/models"
	rewarderrors "github.com/burakmert236/goodswipe-rewards/services/rewards-service/internal/errors"
	"github.com/burakmert236/goodswipe-rewards/services/rewards-service/internal/rules"
	"github.com/burakmert236/goodswipe-rewards/services/rewards-service/internal/service"
)

// customWinnersLimit caps the winners announced and notified for a custom reward.
const customWinnersLimit = 3

// Publisher is implemented by *events.EventPublisher.
type Publisher interface {
	PublishCustomWinners(ctx context.Context, event commonevents.CustomWinnersEvent) error
	SendNotification(ctx context.Context, notification commonevents.Notification) error
}

// CommandHandler turns inbound events and commands into service calls.
type CommandHandler struct {
	rewardService        service.RewardService
	contestService       service.ContestService
	publisher            Publisher
	logger               *logger.Logger
	notificationsEnabled bool
}

func NewCommandHandler(
	rewardService service.RewardService,
	contestService service.ContestService,
	publisher Publisher,
	notificationsEnabled bool,
	logger *logger.Logger,
) *CommandHandler {
	return &CommandHandler{
		rewardService:        rewardService,
		contestService:       contestService,
		publisher:            publisher,
		logger:               logger.ForComponent("command-handler"),
		notificationsEnabled: notificationsEnabled,
	}
}

func (h *CommandHandler) HandleUserCreated(ctx context.Context, e commonevents.UserCreatedEvent) error {
	if _, err := h.rewardService.AddAccount(ctx, e.Id, e.Username, e.RefUsername); err != nil {
		return err
	}
	if e.RefUsername == "" {
		return nil
	}

	referrer, err := h.rewardService.GetAccountByName(ctx, e.RefUsername)
	if apperrors.HasCode(err, apperrors.CodeNotFound) {
		h.logger.Warn("Referral not found", "username", e.RefUsername)
		return nil
	}
	if err != nil {
		return err
	}

	result, err := h.grant(ctx, referrer.UserId, models.InviteAcceptedReferralReason{RefereeUsername: e.Username})
	if err != nil {
		return err
	}
	if result.Reward != nil {
		h.notify(ctx, commonevents.Notification{
			Message:      fmt.Sprintf("You earned %dXP because @%s used your referral link!", result.Reward.Amount, e.Username),
			Url:          "profile/" + e.Id,
			Participants: []string{referrer.UserId},
		})
	}

	_, err = h.grant(ctx, e.Id, models.InviteAcceptedUserReason{})
	return err
}

func (h *CommandHandler) HandleUserUpdated(ctx context.Context, e commonevents.UserUpdatedEvent) error {
	_, err := h.rewardService.AddAccount(ctx, e.Id, e.Username, "")
	return err
}

func (h *CommandHandler) HandlePhoneVerified(ctx context.Context, e commonevents.UserVerifiedEvent) error {
	_, err := h.grant(ctx, e.Id, models.PhoneNumberVerifiedReason{})
	return err
}

func (h *CommandHandler) HandleEmailVerified(ctx context.Context, e commonevents.UserVerifiedEvent) error {
	_, err := h.grant(ctx, e.Id, models.EmailVerifiedReason{})
	return err
}

func (h *CommandHandler) HandleUserFollowed(ctx context.Context, e commonevents.UserFollowedEvent) error {
	milestone, ok := rules.FollowerMilestoneFor(e.FollowerCount)
	if !ok {
		return nil
	}
	_, err := h.grant(ctx, e.FollowedProfileId, models.FollowerMilestoneReachedReason{Milestone: milestone})
	return err
}

func (h *CommandHandler) HandleVoteCreated(ctx context.Context, e commonevents.VoteCreatedEvent) error {
	if e.Voter.RemainVotes != 0 {
		return nil
	}
	_, err := h.grant(ctx, e.Voter.Id, models.UserDailyVotesConsumedReason{})
	return err
}

// HandleContestWinnersAnnounced rewards winners by their position in the list.
// Winner rewards are keyed on contest and position, so a redelivery only
// pays the winners that failed before.
func (h *CommandHandler) HandleContestWinnersAnnounced(ctx context.Context, e commonevents.ContestWinnersAnnouncedEvent) error {
	var errs []error
	for idx, winner := range e.Winners {
		_, err := h.grant(ctx, winner.UserId, models.ContestWinnerReason{ContestId: e.ContestId, Position: idx + 1})
		if err != nil {
			errs = append(errs, fmt.Errorf("winner %s: %w", winner.UserId, err))
		}
	}
	return errors.Join(errs...)
}

func (h *CommandHandler) HandleContestantJoined(ctx context.Context, e commonevents.ContestantJoinedEvent) error {
	_, err := h.contestService.AddContestant(ctx, models.Contestant{
		ContestantId: e.Id,
		UserId:       e.UserId,
		ContestId:    e.Contest,
		Name:         e.Name,
		CreatedAt:    e.CreatedAt,
	})
	if err != nil {
		return err
	}

	_, err = h.grant(ctx, e.UserId, models.ContestantJoinedReason{ContestId: e.Contest})
	return err
}

func (h *CommandHandler) HandleContestantDeleted(ctx context.Context, e commonevents.ContestantDeletedEvent) error {
	return h.contestService.RemoveContestant(ctx, e.Id)
}

func (h *CommandHandler) HandleContestSeasonCreated(ctx context.Context, e commonevents.ContestSeasonEvent) error {
	return h.contestService.AddContest(ctx, contestFrom(e))
}

func (h *CommandHandler) HandleContestSeasonVotingStarted(ctx context.Context, e commonevents.ContestSeasonEvent) error {
	return h.contestService.UpdateContest(ctx, contestFrom(e))
}

func contestFrom(e commonevents.ContestSeasonEvent) models.Contest {
	return models.Contest{
		ContestId:       e.Id,
		ConfigurationId: e.ConfigurationId,
		Name:            e.Name,
		Status:          models.ContestStatus(e.Status),
	}
}

// HandleRewardGranted pays the referrer of the rewarded account once the
// account's XP crosses a referral milestone.
func (h *CommandHandler) HandleRewardGranted(ctx context.Context, event models.RewardEvent) error {
	account, err := h.rewardService.GetAccount(ctx, event.UserId)
	if apperrors.HasCode(err, apperrors.CodeNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if account.RefUsername == "" || account.Xp == 0 {
		return nil
	}

	milestone, ok := rules.XpMilestoneFor(account.Xp)
	if !ok || !rules.CrossesMilestone(milestone, account.Xp-event.Reward, account.Xp) {
		return nil
	}

	referrer, err := h.rewardService.GetAccountByName(ctx, account.RefUsername)
	if apperrors.HasCode(err, apperrors.CodeNotFound) {
		h.logger.Warn("Referrer not found", "userId", account.UserId, "refUsername", account.RefUsername)
		return nil
	}
	if err != nil {
		return err
	}

	eligible, err := h.rewardService.GetXpMilestoneRewardsGranted(ctx, referrer.UserId, account.UserId, milestone.Reward)
	if err != nil {
		return err
	}
	if !eligible {
		h.logger.Debug("Referral milestone already rewarded", "referrerId", referrer.UserId, "sourceUserId", account.UserId, "xpCount", milestone.XpCount)
		return nil
	}

	result, err := h.grant(ctx, referrer.UserId, models.ReferredUserXpMilestoneReachedReason{
		SourceUserId: account.UserId,
		Milestone:    milestone,
	})
	if err != nil {
		return err
	}
	if result.Reward != nil {
		h.notify(ctx, commonevents.Notification{
			Message:      fmt.Sprintf("You earned %dXP because @%s earned %dXP!", milestone.Reward, account.Username, milestone.XpCount),
			Url:          "profile/" + referrer.UserId,
			Participants: []string{referrer.UserId},
		})
	}
	return nil
}

// HandleCustomReward validates the whole command before granting anything.
func (h *CommandHandler) HandleCustomReward(ctx context.Context, cmd commonevents.CustomRewardCommand) error {
	if len(cmd.Usernames) == 0 {
		return rewarderrors.ValidationError("usernames are required")
	}
	if cmd.ActivityMessage == "" {
		return rewarderrors.ValidationError("activity message is required")
	}
	if cmd.ContestId != "" && cmd.PostMessage == "" {
		return rewarderrors.ValidationError("post message is required when a contest id is specified")
	}

	accounts, err := h.accountsByName(ctx, cmd.Usernames)
	if err != nil {
		return err
	}

	var contestants []models.Contestant
	if cmd.ContestId != "" {
		if contestants, err = h.contestantsByName(ctx, cmd.ContestId, cmd.Usernames); err != nil {
			return err
		}
	}

	reason := models.CustomReason{
		ActivityMessage: cmd.ActivityMessage,
		ContestId:       cmd.ContestId,
		Reward:          cmd.Reward,
	}
	// Custom rewards carry random ids, so a replay after a partial batch
	// would pay the granted accounts twice.
	for i, account := range accounts {
		if _, err := h.grant(ctx, account.UserId, reason); err != nil {
			if i == 0 {
				return err
			}
			h.logger.Error("Custom reward partially granted",
				"granted", i,
				"total", len(accounts),
				"failedUserId", account.UserId,
				"error", err,
			)
			return rewarderrors.PartialGrantError(err, i, len(accounts))
		}
	}

	if cmd.ContestId == "" {
		return nil
	}

	top := min(customWinnersLimit, len(accounts))
	winners := make([]commonevents.CustomWinner, 0, top)
	participants := make([]string, 0, top)
	for i := range top {
		winners = append(winners, commonevents.CustomWinner{
			UserId:              accounts[i].UserId,
			Username:            accounts[i].Username,
			ContestantId:        contestants[i].ContestantId,
			ContestantCreatedAt: contestants[i].CreatedAt,
		})
		participants = append(participants, accounts[i].UserId)
	}

	if err := h.publisher.PublishCustomWinners(ctx, commonevents.CustomWinnersEvent{
		ContestId:   cmd.ContestId,
		Winners:     winners,
		PostMessage: cmd.PostMessage,
	}); err != nil {
		h.logger.Error("Failed to publish custom winners", "contestId", cmd.ContestId, "error", err)
	}

	h.notify(ctx, commonevents.Notification{
		Message:      cmd.ActivityMessage,
		Url:          "contest/" + cmd.ContestId,
		Participants: participants,
	})
	return nil
}

func (h *CommandHandler) accountsByName(ctx context.Context, usernames []string) ([]models.Account, error) {
	accounts := make([]models.Account, 0, len(usernames))
	var missing []string
	for _, username := range usernames {
		account, err := h.rewardService.GetAccountByName(ctx, username)
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			missing = append(missing, username)
			continue
		}
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}

	if len(missing) > 0 {
		return nil, rewarderrors.ValidationError(
			fmt.Sprintf("accounts for usernames %s are not found", strings.Join(missing, ", ")))
	}
	return accounts, nil
}

func (h *CommandHandler) contestantsByName(ctx context.Context, contestId string, usernames []string) ([]models.Contestant, error) {
	contest, err := h.contestService.LoadContest(ctx, contestId)
	if apperrors.HasCode(err, apperrors.CodeNotFound) {
		return nil, rewarderrors.ValidationError(fmt.Sprintf("contest with id %s does not exist", contestId))
	}
	if err != nil {
		return nil, err
	}
	if !contest.Status.AcceptsCustomRewards() {
		return nil, rewarderrors.ContestNotRewardableError(contestId, contest.Status)
	}

	contestants := make([]models.Contestant, 0, len(usernames))
	var missing []string
	for _, username := range usernames {
		contestant, err := h.contestService.GetContestantByContestIdAndName(ctx, contestId, username)
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			missing = append(missing, username)
			continue
		}
		if err != nil {
			return nil, err
		}
		contestants = append(contestants, *contestant)
	}

	if len(missing) > 0 {
		return nil, rewarderrors.ValidationError(fmt.Sprintf(
			"accounts with usernames %s are not participants of contest %s", strings.Join(missing, ", "), contestId))
	}
	return contestants, nil
}

// grant treats a reward rejected as already granted as a skipped grant, so
// redelivered events settle cleanly.
func (h *CommandHandler) grant(ctx context.Context, userId string, reason models.RewardReason) (*service.GrantResult, error) {
	log := h.logger.ForGrant(userId, string(reason.Type()))
	result, err := h.rewardService.GrantReward(ctx, userId, reason)
	if apperrors.HasCode(err, apperrors.CodeAlreadyGranted) {
		log.Info("Reward already granted")
		return &service.GrantResult{Skipped: true}, nil
	}
	if err != nil {
		return nil, err
	}

	for _, warning := range result.Warnings {
		log.Warn("Reward granted with warning", "warning", warning)
	}
	return result, nil
}

func (h *CommandHandler) notify(ctx context.Context, notification commonevents.Notification) {
	if !h.notificationsEnabled {
		return
	}
	if err := h.publisher.SendNotification(ctx, notification); err != nil {
		h.logger.Error("Failed to send notification", "url", notification.Url, "error", err)
	}
}
