package models

import (
	"github.com/burakmert236/goodswipe-rewards/common/database"
)

const ContestTypename = "CONTEST"

type ContestStatus string

const (
	ContestStatusSubmission       ContestStatus = "SUBMISSION"
	ContestStatusSubmissionVoting ContestStatus = "SUBMISSION_VOTING"
	ContestStatusVoting           ContestStatus = "VOTING"
	ContestStatusFinished         ContestStatus = "FINISHED"
)

// AcceptsCustomRewards reports whether custom contest rewards may be granted in this state.
func (s ContestStatus) AcceptsCustomRewards() bool {
	return s == ContestStatusSubmissionVoting || s == ContestStatusVoting
}

type Contest struct {
	ContestId       string
	ConfigurationId string
	Name            string
	Status          ContestStatus
}

func (c Contest) GetID() string {
	return c.ContestId
}

type contestItem struct {
	Id              string `dynamodbav:"id"`
	ConfigurationId string `dynamodbav:"configurationId"`
	Name            string `dynamodbav:"name"`
	Status          string `dynamodbav:"status"`
}

func NewContestAdapter() *database.Adapter[Contest] {
	return database.NewAdapter(database.AdapterConfig[Contest]{
		Typename: ContestTypename,
		Primary: database.KeyGenerator[Contest]{
			Hash: database.StandardKey[Contest],
			Sort: database.StandardKey[Contest],
		},
		Encode: func(c Contest) (database.Item, error) {
			return database.MarshalItem(contestItem{
				Id:              c.ContestId,
				ConfigurationId: c.ConfigurationId,
				Name:            c.Name,
				Status:          string(c.Status),
			})
		},
		Decode: func(item database.Item) (Contest, error) {
			row, err := database.UnmarshalItem[contestItem](item)
			if err != nil {
				return Contest{}, err
			}
			return Contest{
				ContestId:       row.Id,
				ConfigurationId: row.ConfigurationId,
				Name:            row.Name,
				Status:          ContestStatus(row.Status),
			}, nil
		},
	})
}
