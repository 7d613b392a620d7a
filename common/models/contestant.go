package models

import (
	"time"

	"github.com/burakmert236/goodswipe-rewards/common/database"
)

const ContestantTypename = "CONTESTANT"

type Contestant struct {
	ContestantId string
	UserId       string
	ContestId    string
	Name         string
	// CreatedAt is the upstream ordering value, epoch milliseconds.
	CreatedAt int64
	Timestamp time.Time
}

func (c Contestant) GetID() string {
	return c.ContestantId
}

// contestantItem keeps timestamp as epoch milliseconds, unlike the other entities.
type contestantItem struct {
	Id        string `dynamodbav:"id"`
	UserId    string `dynamodbav:"userId"`
	Name      string `dynamodbav:"name"`
	ContestId string `dynamodbav:"contestId"`
	CreatedAt int64  `dynamodbav:"createdAt"`
	Timestamp int64  `dynamodbav:"timestamp"`
}

// Key handlers
func ContestantContestKey(contestId string) string {
	return database.ComposeKey(ContestantTypename, contestId)
}

func ContestantNameKey(name string) string {
	return database.ComposeKey(ContestantTypename, name)
}

func NewContestantAdapter() *database.Adapter[Contestant] {
	return database.NewAdapter(database.AdapterConfig[Contestant]{
		Typename: ContestantTypename,
		Primary: database.KeyGenerator[Contestant]{
			Hash: database.StandardKey[Contestant],
			Sort: database.StandardKey[Contestant],
		},
		Global: []*database.KeyGenerator[Contestant]{
			{
				Hash: func(typename string, c Contestant) string { return database.ComposeKey(typename, c.ContestId) },
				Sort: func(typename string, c Contestant) string { return database.ComposeKey(typename, c.Name) },
			},
		},
		Encode: func(c Contestant) (database.Item, error) {
			return database.MarshalItem(contestantItem{
				Id:        c.ContestantId,
				UserId:    c.UserId,
				Name:      c.Name,
				ContestId: c.ContestId,
				CreatedAt: c.CreatedAt,
				Timestamp: c.Timestamp.UnixMilli(),
			})
		},
		Decode: func(item database.Item) (Contestant, error) {
			row, err := database.UnmarshalItem[contestantItem](item)
			if err != nil {
				return Contestant{}, err
			}
			return Contestant{
				ContestantId: row.Id,
				UserId:       row.UserId,
				ContestId:    row.ContestId,
				Name:         row.Name,
				CreatedAt:    row.CreatedAt,
				Timestamp:    time.UnixMilli(row.Timestamp).UTC(),
			}, nil
		},
	})
}
