package repository

import (
	"context"
	"fmt"

	"github.com/burakmert236/goodswipe-rewards/common/database"
	"github.com/burakmert236/goodswipe-rewards/common/models"
)

type ContestRepository interface {
	Get(ctx context.Context, contestId string) (*models.Contest, error)
	Save(ctx context.Context, contest models.Contest) error
	Delete(ctx context.Context, contestId string) error
	SaveBatch(ctx context.Context, contests []models.Contest) error
}

type contestRepo struct {
	contests *database.Collection[models.Contest]
}

func NewContestRepository(store *database.Store) ContestRepository {
	return &contestRepo{contests: database.NewCollection(store, models.NewContestAdapter())}
}

func (r *contestRepo) Get(ctx context.Context, contestId string) (*models.Contest, error) {
	contest, found, err := r.contests.Get(ctx, models.Contest{ContestId: contestId})
	if err != nil {
		return nil, fmt.Errorf("failed to get contest: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &contest, nil
}

func (r *contestRepo) Save(ctx context.Context, contest models.Contest) error {
	if err := r.contests.Put(ctx, contest); err != nil {
		return fmt.Errorf("failed to save contest: %w", err)
	}
	return nil
}

func (r *contestRepo) Delete(ctx context.Context, contestId string) error {
	if err := r.contests.Delete(ctx, models.Contest{ContestId: contestId}); err != nil {
		return fmt.Errorf("failed to delete contest: %w", err)
	}
	return nil
}

func (r *contestRepo) SaveBatch(ctx context.Context, contests []models.Contest) error {
	if err := r.contests.PutBatch(ctx, contests); err != nil {
		return fmt.Errorf("failed to save contests batch: %w", err)
	}
	return nil
}
