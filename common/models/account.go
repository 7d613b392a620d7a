package models

import (
	"time"

	"github.com/burakmert236/goodswipe-rewards/common/database"
)

const AccountTypename = "ACCOUNT"

type Account struct {
	UserId      string
	Username    string
	RefUsername string
	Xp          int
	UpdatedAt   time.Time
}

func (a Account) GetID() string {
	return a.UserId
}

// NewAccount builds a freshly registered account with zero XP.
func NewAccount(userId, username, refUsername string, now time.Time) Account {
	return Account{
		UserId:      userId,
		Username:    username,
		RefUsername: refUsername,
		Xp:          0,
		UpdatedAt:   database.TruncateTime(now),
	}
}

// GrantReward applies a reward's XP in memory.
func (a *Account) GrantReward(reward Reward, now time.Time) {
	a.Xp += reward.Amount
	a.UpdatedAt = database.TruncateTime(now)
}

type accountItem struct {
	Id          string `dynamodbav:"id"`
	UserName    string `dynamodbav:"userName"`
	Xp          int    `dynamodbav:"xp"`
	RefUsername string `dynamodbav:"refUsername,omitempty"`
	UpdatedAt   string `dynamodbav:"updatedAt"`
}

// Key handlers
func AccountUsernameKey(username string) string {
	return database.ComposeKey(AccountTypename, username)
}

func accountUpdatedAtKey(typename string, a Account) string {
	return database.ComposeKey(typename, database.FormatTime(a.UpdatedAt))
}

func NewAccountAdapter() *database.Adapter[Account] {
	return database.NewAdapter(database.AdapterConfig[Account]{
		Typename: AccountTypename,
		Primary: database.KeyGenerator[Account]{
			Hash: database.StandardKey[Account],
			Sort: database.StandardKey[Account],
		},
		Global: []*database.KeyGenerator[Account]{
			{
				Hash: func(typename string, a Account) string { return database.ComposeKey(typename, a.Username) },
				Sort: accountUpdatedAtKey,
			},
		},
		Encode: func(a Account) (database.Item, error) {
			return database.MarshalItem(accountItem{
				Id:          a.UserId,
				UserName:    a.Username,
				Xp:          a.Xp,
				RefUsername: a.RefUsername,
				UpdatedAt:   database.FormatTime(a.UpdatedAt),
			})
		},
		Decode: func(item database.Item) (Account, error) {
			row, err := database.UnmarshalItem[accountItem](item)
			if err != nil {
				return Account{}, err
			}
			updatedAt, err := database.ParseTime(row.UpdatedAt)
			if err != nil {
				return Account{}, err
			}
			return Account{
				UserId:      row.Id,
				Username:    row.UserName,
				RefUsername: row.RefUsername,
				Xp:          row.Xp,
				UpdatedAt:   updatedAt,
			}, nil
		},
	})
}

// AccountUpdatedAtSortKey is the g1 sort value written alongside an XP update.
func AccountUpdatedAtSortKey(a Account) string {
	return accountUpdatedAtKey(AccountTypename, a)
}
