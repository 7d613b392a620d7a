package repository

import (
	"context"
	"fmt"

	"github.com/burakmert236/goodswipe-rewards/common/database"
	"github.com/burakmert236/goodswipe-rewards/common/models"
)

type ContestantRepository interface {
	Save(ctx context.Context, contestant models.Contestant) error
	GetByContestAndName(ctx context.Context, contestId, name string) (*models.Contestant, error)
	ListByContest(ctx context.Context, contestId string, limit int) ([]models.Contestant, error)
	Delete(ctx context.Context, contestantId string) error
	DeleteBatch(ctx context.Context, contestantIds []string) error
	SaveBatch(ctx context.Context, contestants []models.Contestant) error
}

type contestantRepo struct {
	contestants *database.Collection[models.Contestant]
}

func NewContestantRepository(store *database.Store) ContestantRepository {
	return &contestantRepo{contestants: database.NewCollection(store, models.NewContestantAdapter())}
}

func (r *contestantRepo) Save(ctx context.Context, contestant models.Contestant) error {
	if err := r.contestants.Put(ctx, contestant); err != nil {
		return fmt.Errorf("failed to save contestant: %w", err)
	}
	return nil
}

func (r *contestantRepo) GetByContestAndName(ctx context.Context, contestId, name string) (*models.Contestant, error) {
	contestant, found, err := r.contestants.First(ctx, database.Query{
		Index: 1,
		Hash:  models.ContestantContestKey(contestId),
		Sort:  database.SortEquals(models.ContestantNameKey(name)),
		Limit: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get contestant by contest and name: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &contestant, nil
}

// ListByContest returns up to limit contestants, in reverse index order. A
// non-positive limit returns all of them.
func (r *contestantRepo) ListByContest(ctx context.Context, contestId string, limit int) ([]models.Contestant, error) {
	contestants := make([]models.Contestant, 0)
	for contestant, err := range r.contestants.Query(ctx, database.Query{
		Index:   1,
		Hash:    models.ContestantContestKey(contestId),
		Limit:   max(limit, 0),
		Reverse: true,
	}) {
		if err != nil {
			return nil, fmt.Errorf("failed to list contestants: %w", err)
		}
		contestants = append(contestants, contestant)
	}
	return contestants, nil
}

func (r *contestantRepo) Delete(ctx context.Context, contestantId string) error {
	if err := r.contestants.Delete(ctx, models.Contestant{ContestantId: contestantId}); err != nil {
		return fmt.Errorf("failed to delete contestant: %w", err)
	}
	return nil
}

func (r *contestantRepo) DeleteBatch(ctx context.Context, contestantIds []string) error {
	probes := make([]models.Contestant, 0, len(contestantIds))
	for _, id := range contestantIds {
		probes = append(probes, models.Contestant{ContestantId: id})
	}
	if err := r.contestants.DeleteBatch(ctx, probes); err != nil {
		return fmt.Errorf("failed to delete contestants batch: %w", err)
	}
	return nil
}

func (r *contestantRepo) SaveBatch(ctx context.Context, contestants []models.Contestant) error {
	if err := r.contestants.PutBatch(ctx, contestants); err != nil {
		return fmt.Errorf("failed to save contestants batch: %w", err)
	}
	return nil
}
