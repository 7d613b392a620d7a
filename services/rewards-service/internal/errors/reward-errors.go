package errors

import (
	"fmt"

	apperrors "github.com/burakmert236/goodswipe-rewards/common/errors"
	"github.com/burakmert236/goodswipe-rewards/common/models"
)

func AccountNotFoundError(userId string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeNotFound,
		fmt.Sprintf("account (id: %s) is not found", userId))
}

func AccountByNameNotFoundError(username string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeNotFound,
		fmt.Sprintf("account (username: %s) is not found", username))
}

func ContestNotFoundError(contestId string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeNotFound,
		fmt.Sprintf("contest with id %s is not found", contestId))
}

func ContestantNotFoundError(contestId, username string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeNotFound,
		fmt.Sprintf("%s is not a contestant of contest %s", username, contestId))
}

func RewardAlreadyGrantedError(rewardId string, err error) *apperrors.AppError {
	return apperrors.Wrap(err, apperrors.CodeAlreadyGranted,
		fmt.Sprintf("the reward (id: %s) is already granted", rewardId))
}

func NoRuleForReasonError(rewardType models.RewardType) *apperrors.AppError {
	return apperrors.New(apperrors.CodeNoRuleForReason,
		fmt.Sprintf("there is no rule for reward reason %s", rewardType))
}

func InvalidReasonError(rewardType models.RewardType, reason models.RewardReason) *apperrors.AppError {
	return apperrors.New(apperrors.CodeInternalServer,
		fmt.Sprintf("rule for %s received %T", rewardType, reason))
}

func ContestNotRewardableError(contestId string, status models.ContestStatus) *apperrors.AppError {
	return apperrors.New(apperrors.CodeInvalidInput,
		fmt.Sprintf("contest %s is in status %s and cannot be rewarded", contestId, status))
}

func ValidationError(message string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeInvalidInput, message)
}

func DatabaseError(err error, message string) *apperrors.AppError {
	return apperrors.Wrap(err, apperrors.CodeDatabaseError, message)
}

func TransactionError(err error) *apperrors.AppError {
	return apperrors.Wrap(err, apperrors.CodeTransactionError, "failed to commit reward transaction")
}

func PublishError(err error, subject string) *apperrors.AppError {
	return apperrors.Wrap(err, apperrors.CodeEventPublishError,
		fmt.Sprintf("failed to publish to %s", subject))
}

// PartialGrantError marks a batch that failed after some grants committed.
// Replaying it would pay the committed ones again.
func PartialGrantError(err error, granted, total int) *apperrors.AppError {
	return apperrors.Wrap(err, apperrors.CodePartialGrant,
		fmt.Sprintf("granted %d of %d rewards before failing", granted, total))
}
