package service

import (
	"context"
	"time"

	"github.com/burakmert236/goodswipe-rewards/common/logger"
	"github.com/burakmert236/goodswipe-rewards/common/models"
	rewarderrors "github.com/burakmert236/goodswipe-rewards/services/rewards-service/internal/errors"
	"github.com/burakmert236/goodswipe-rewards/services/rewards-service/internal/repository"
)

type ContestService interface {
	AddContest(ctx context.Context, contest models.Contest) error
	UpdateContest(ctx context.Context, contest models.Contest) error
	RemoveContest(ctx context.Context, contestId string) error
	LoadContest(ctx context.Context, contestId string) (*models.Contest, error)
	SaveContestsBatch(ctx context.Context, contests []models.Contest) error

	AddContestant(ctx context.Context, contestant models.Contestant) (*models.Contestant, error)
	LoadContestants(ctx context.Context, contestId string, limit int) ([]models.Contestant, error)
	GetContestantByContestIdAndName(ctx context.Context, contestId, name string) (*models.Contestant, error)
	RemoveContestant(ctx context.Context, contestantId string) error
	RemoveContestantsBatch(ctx context.Context, contestantIds []string) error
	SaveContestantsBatch(ctx context.Context, contestants []models.Contestant) error
}

type contestService struct {
	contestRepo    repository.ContestRepository
	contestantRepo repository.ContestantRepository
	logger         *logger.Logger
	now            func() time.Time
}

func NewContestService(
	contestRepo repository.ContestRepository,
	contestantRepo repository.ContestantRepository,
	logger *logger.Logger,
) ContestService {
	return &contestService{
		contestRepo:    contestRepo,
		contestantRepo: contestantRepo,
		logger:         logger.ForComponent("contest-service"),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *contestService) AddContest(ctx context.Context, contest models.Contest) error {
	if contest.ContestId == "" {
		return rewarderrors.ValidationError("contest id is required")
	}
	if err := s.contestRepo.Save(ctx, contest); err != nil {
		return rewarderrors.DatabaseError(err, "failed to save contest")
	}
	s.logger.Debug("Contest saved", "contestId", contest.ContestId, "status", contest.Status)
	return nil
}

func (s *contestService) UpdateContest(ctx context.Context, contest models.Contest) error {
	if _, err := s.LoadContest(ctx, contest.ContestId); err != nil {
		return err
	}
	if err := s.contestRepo.Save(ctx, contest); err != nil {
		return rewarderrors.DatabaseError(err, "failed to update contest")
	}
	s.logger.Debug("Contest updated", "contestId", contest.ContestId, "status", contest.Status)
	return nil
}

func (s *contestService) RemoveContest(ctx context.Context, contestId string) error {
	if err := s.contestRepo.Delete(ctx, contestId); err != nil {
		return rewarderrors.DatabaseError(err, "failed to remove contest")
	}
	return nil
}

func (s *contestService) LoadContest(ctx context.Context, contestId string) (*models.Contest, error) {
	contest, err := s.contestRepo.Get(ctx, contestId)
	if err != nil {
		return nil, rewarderrors.DatabaseError(err, "failed to load contest")
	}
	if contest == nil {
		return nil, rewarderrors.ContestNotFoundError(contestId)
	}
	return contest, nil
}

func (s *contestService) SaveContestsBatch(ctx context.Context, contests []models.Contest) error {
	if err := s.contestRepo.SaveBatch(ctx, contests); err != nil {
		return rewarderrors.DatabaseError(err, "failed to save contests")
	}
	return nil
}

// AddContestant stores contestant, stamping it with the current time when it has none.
func (s *contestService) AddContestant(ctx context.Context, contestant models.Contestant) (*models.Contestant, error) {
	if contestant.ContestantId == "" || contestant.ContestId == "" {
		return nil, rewarderrors.ValidationError("contestant id and contest id are required")
	}
	if contestant.Timestamp.IsZero() {
		contestant.Timestamp = s.now()
	}
	if err := s.contestantRepo.Save(ctx, contestant); err != nil {
		return nil, rewarderrors.DatabaseError(err, "failed to save contestant")
	}
	s.logger.Debug("Contestant saved", "contestantId", contestant.ContestantId, "contestId", contestant.ContestId)
	return &contestant, nil
}

func (s *contestService) LoadContestants(ctx context.Context, contestId string, limit int) ([]models.Contestant, error) {
	contestants, err := s.contestantRepo.ListByContest(ctx, contestId, limit)
	if err != nil {
		return nil, rewarderrors.DatabaseError(err, "failed to load contestants")
	}
	return contestants, nil
}

func (s *contestService) GetContestantByContestIdAndName(ctx context.Context, contestId, name string) (*models.Contestant, error) {
	contestant, err := s.contestantRepo.GetByContestAndName(ctx, contestId, name)
	if err != nil {
		return nil, rewarderrors.DatabaseError(err, "failed to load contestant")
	}
	if contestant == nil {
		return nil, rewarderrors.ContestantNotFoundError(contestId, name)
	}
	return contestant, nil
}

func (s *contestService) RemoveContestant(ctx context.Context, contestantId string) error {
	if err := s.contestantRepo.Delete(ctx, contestantId); err != nil {
		return rewarderrors.DatabaseError(err, "failed to remove contestant")
	}
	return nil
}

func (s *contestService) RemoveContestantsBatch(ctx context.Context, contestantIds []string) error {
	if err := s.contestantRepo.DeleteBatch(ctx, contestantIds); err != nil {
		return rewarderrors.DatabaseError(err, "failed to remove contestants")
	}
	return nil
}

func (s *contestService) SaveContestantsBatch(ctx context.Context, contestants []models.Contestant) error {
	if err := s.contestantRepo.SaveBatch(ctx, contestants); err != nil {
		return rewarderrors.DatabaseError(err, "failed to save contestants")
	}
	return nil
}
