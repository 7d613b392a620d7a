package models

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/burakmert236/goodswipe-rewards/common/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 17, 9, 30, 15, 123000000, time.UTC)

func attr(t *testing.T, item database.Item, name string) string {
	t.Helper()
	v, ok := item[name].(*types.AttributeValueMemberS)
	require.True(t, ok, "attribute %s is not a string", name)
	return v.Value
}

func TestAccountRoundTrip(t *testing.T) {
	adapter := NewAccountAdapter()
	accounts := []Account{
		NewAccount("u1", "alice", "", fixedNow),
		{UserId: "u2", Username: "bob", RefUsername: "alice", Xp: 420, UpdatedAt: fixedNow},
	}

	for _, a := range accounts {
		item, err := adapter.ToStorage(a)
		require.NoError(t, err)

		got, err := adapter.ToDomain(item)
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
}

func TestAccountStorageShape(t *testing.T) {
	a := Account{UserId: "u2", Username: "bob", Xp: 7, UpdatedAt: fixedNow}

	item, err := NewAccountAdapter().ToStorage(a)
	require.NoError(t, err)

	assert.Equal(t, "ACCOUNT", attr(t, item, database.AttrType))
	assert.Equal(t, "ACCOUNT#u2", attr(t, item, database.AttrPrimaryHash))
	assert.Equal(t, "ACCOUNT#u2", attr(t, item, database.AttrPrimarySort))
	assert.Equal(t, "ACCOUNT#bob", attr(t, item, "_g1h"))
	assert.Equal(t, "ACCOUNT#2024-05-17T09:30:15.123Z", attr(t, item, "_g1s"))
	assert.Equal(t, AccountUsernameKey("bob"), attr(t, item, "_g1h"))
	assert.Equal(t, AccountUpdatedAtSortKey(a), attr(t, item, "_g1s"))
	assert.Equal(t, "bob", attr(t, item, "userName"))
	assert.Equal(t, "2024-05-17T09:30:15.123Z", attr(t, item, "updatedAt"))
	assert.NotContains(t, item, "refUsername")
}

func TestAccountGrantReward(t *testing.T) {
	a := NewAccount("u1", "alice", "", fixedNow)
	later := fixedNow.Add(time.Hour)

	a.GrantReward(NewReward("u1", 25, EmailVerifiedReason{}, later), later)
	assert.Equal(t, 25, a.Xp)
	assert.Equal(t, later, a.UpdatedAt)
}

func TestContestRoundTrip(t *testing.T) {
	adapter := NewContestAdapter()
	c := Contest{ContestId: "c1", ConfigurationId: "cfg", Name: "Spring", Status: ContestStatusVoting}

	item, err := adapter.ToStorage(c)
	require.NoError(t, err)
	assert.Equal(t, "CONTEST#c1", attr(t, item, database.AttrPrimaryHash))
	assert.NotContains(t, item, "_g1h")

	got, err := adapter.ToDomain(item)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestContestStatusAcceptsCustomRewards(t *testing.T) {
	assert.True(t, ContestStatusVoting.AcceptsCustomRewards())
	assert.True(t, ContestStatusSubmissionVoting.AcceptsCustomRewards())
	assert.False(t, ContestStatusSubmission.AcceptsCustomRewards())
	assert.False(t, ContestStatusFinished.AcceptsCustomRewards())
}

func TestContestantRoundTrip(t *testing.T) {
	adapter := NewContestantAdapter()
	c := Contestant{
		ContestantId: "p1",
		UserId:       "u1",
		ContestId:    "c1",
		Name:         "alice",
		CreatedAt:    1715938215123,
		Timestamp:    fixedNow,
	}

	item, err := adapter.ToStorage(c)
	require.NoError(t, err)

	assert.Equal(t, ContestantContestKey("c1"), attr(t, item, "_g1h"))
	assert.Equal(t, ContestantNameKey("alice"), attr(t, item, "_g1s"))
	ts, ok := item["timestamp"].(*types.AttributeValueMemberN)
	require.True(t, ok, "contestant timestamp is stored as a number")
	assert.Equal(t, "1715938215123", ts.Value)

	got, err := adapter.ToDomain(item)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestRewardRoundTripEveryReason(t *testing.T) {
	adapter := NewRewardAdapter()
	reasons := []RewardReason{
		ContestantJoinedReason{ContestId: "c1"},
		ContestVoterReason{ContestId: "c1", Voter: VoterInfo{RemainVotes: 3}},
		ContestWinnerReason{ContestId: "c1", Position: 2},
		CustomReason{ActivityMessage: "great post", ContestId: "c1", Reward: 15},
		CustomReason{Reward: 5},
		AccountCreatedReason{},
		PhoneNumberVerifiedReason{},
		EmailVerifiedReason{},
		InviteAcceptedReferralReason{RefereeUsername: "bob"},
		InviteAcceptedUserReason{},
		UserDailyVotesConsumedReason{},
		FollowerMilestoneReachedReason{Milestone: FollowerMilestone{FollowerCount: 10, Reward: 5}},
		ReferredUserXpMilestoneReachedReason{SourceUserId: "u9", Milestone: XpMilestone{XpCount: 200, Reward: 20}},
	}

	for _, reason := range reasons {
		t.Run(string(reason.Type()), func(t *testing.T) {
			r := NewReward("u1", 10, reason, fixedNow)

			item, err := adapter.ToStorage(r)
			require.NoError(t, err)

			got, err := adapter.ToDomain(item)
			require.NoError(t, err)
			assert.Equal(t, r, got)
		})
	}
}

func TestRewardIndexKeys(t *testing.T) {
	adapter := NewRewardAdapter()

	referral := NewReward("u1", 20, ReferredUserXpMilestoneReachedReason{
		SourceUserId: "u9",
		Milestone:    XpMilestone{XpCount: 200, Reward: 20},
	}, fixedNow)
	item, err := adapter.ToStorage(referral)
	require.NoError(t, err)

	assert.Equal(t, "REWARD#u1", attr(t, item, "_g1h"))
	assert.Equal(t, "REWARD#2024-05-17T09:30:15.123Z", attr(t, item, "_g1s"))
	assert.Equal(t, "REWARD#REFERRED_USER_XP_MILESTONE_REACHED", attr(t, item, "_g2h"))
	assert.Equal(t, "REWARD#u1", attr(t, item, "_g2s"))
	assert.Equal(t, "REWARD#u1", attr(t, item, "_g3h"))
	assert.Equal(t, "REWARD#REFERRED_USER_XP_MILESTONE_REACHED#u9#2024-05-17T09:30:15.123Z", attr(t, item, "_g3s"))
	assert.Contains(t, attr(t, item, "_g3s"), ReferralMilestonePrefix("u9"))

	voter := NewReward("u1", 1, ContestVoterReason{ContestId: "c1"}, fixedNow)
	item, err = adapter.ToStorage(voter)
	require.NoError(t, err)
	assert.Equal(t, "REWARD#CONTEST_VOTER#2024-05-17T09:30:15.123Z", attr(t, item, "_g3s"))
	assert.Equal(t, RewardTypeKey(RewardContestVoter), attr(t, item, "_g2h"))
}

func TestRewardIdFor(t *testing.T) {
	tests := []struct {
		name   string
		a, b   RewardReason
		userA  string
		userB  string
		stable bool
		same   bool
	}{
		{"one-time same user", EmailVerifiedReason{}, EmailVerifiedReason{}, "u1", "u1", true, true},
		{"one-time different users", EmailVerifiedReason{}, EmailVerifiedReason{}, "u1", "u2", true, false},
		{"one-time different types", EmailVerifiedReason{}, PhoneNumberVerifiedReason{}, "u1", "u1", true, false},
		{
			"follower milestone same threshold",
			FollowerMilestoneReachedReason{Milestone: FollowerMilestone{FollowerCount: 5, Reward: 4}},
			FollowerMilestoneReachedReason{Milestone: FollowerMilestone{FollowerCount: 5, Reward: 4}},
			"u1", "u1", true, true,
		},
		{
			"follower milestone different thresholds",
			FollowerMilestoneReachedReason{Milestone: FollowerMilestone{FollowerCount: 5, Reward: 4}},
			FollowerMilestoneReachedReason{Milestone: FollowerMilestone{FollowerCount: 10, Reward: 5}},
			"u1", "u1", true, false,
		},
		{
			"referral milestone per source",
			ReferredUserXpMilestoneReachedReason{SourceUserId: "u8", Milestone: XpMilestone{XpCount: 100, Reward: 10}},
			ReferredUserXpMilestoneReachedReason{SourceUserId: "u9", Milestone: XpMilestone{XpCount: 100, Reward: 10}},
			"u1", "u1", true, false,
		},
		{"custom is random", CustomReason{Reward: 5}, CustomReason{Reward: 5}, "u1", "u1", false, false},
		{"winner per contest position", ContestWinnerReason{ContestId: "c", Position: 1}, ContestWinnerReason{ContestId: "c", Position: 1}, "u1", "u1", true, true},
		{"winner different position", ContestWinnerReason{ContestId: "c", Position: 1}, ContestWinnerReason{ContestId: "c", Position: 2}, "u1", "u1", true, false},
		{"winner different contest", ContestWinnerReason{ContestId: "c", Position: 1}, ContestWinnerReason{ContestId: "d", Position: 1}, "u1", "u1", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stable := dedupName(tt.userA, tt.a)
			assert.Equal(t, tt.stable, stable)

			idA := RewardIdFor(tt.userA, tt.a)
			idB := RewardIdFor(tt.userB, tt.b)
			assert.Equal(t, tt.same, idA == idB)
		})
	}
}

func TestReasonCodec(t *testing.T) {
	encoded, err := EncodeReason(FollowerMilestoneReachedReason{Milestone: FollowerMilestone{FollowerCount: 10, Reward: 5}})
	require.NoError(t, err)
	assert.Equal(t, "FOLLOWER_MILESTONE_REACHED", encoded["type"])
	assert.Equal(t, map[string]any{"followerCount": 10, "reward": 5}, encoded["milestone"])

	// numbers decoded from JSON or DynamoDB arrive as floats
	decoded, err := DecodeReason(map[string]any{
		"type":      "CONTEST_WINNER",
		"contestId": "c1",
		"position":  float64(3),
	})
	require.NoError(t, err)
	assert.Equal(t, ContestWinnerReason{ContestId: "c1", Position: 3}, decoded)

	custom, err := EncodeReason(CustomReason{Reward: 5})
	require.NoError(t, err)
	assert.NotContains(t, custom, "contestId")

	_, err = DecodeReason(map[string]any{"type": "BOGUS"})
	assert.Error(t, err)
	_, err = DecodeReason(map[string]any{})
	assert.Error(t, err)
	_, err = EncodeReason(nil)
	assert.Error(t, err)
}

func TestRewardTypeIsOneTime(t *testing.T) {
	oneTime := map[RewardType]bool{
		RewardAccountCreated:      true,
		RewardPhoneNumberVerified: true,
		RewardEmailVerified:       true,
		RewardInviteAcceptedUser:  true,
	}
	for _, rt := range KnownRewardTypes() {
		assert.Equal(t, oneTime[rt], rt.IsOneTime(), rt)
	}
	assert.Len(t, KnownRewardTypes(), 12)
}

func TestRewardEventMapRoundTrip(t *testing.T) {
	r := NewReward("u1", 20, ReferredUserXpMilestoneReachedReason{
		SourceUserId: "u9",
		Milestone:    XpMilestone{XpCount: 200, Reward: 20},
	}, fixedNow)

	payload, err := r.ToEvent().ToMap()
	require.NoError(t, err)
	assert.Equal(t, r.RewardId, payload["id"])
	assert.Equal(t, "2024-05-17T09:30:15.123Z", payload["timestamp"])

	event, err := RewardEventFromMap(payload)
	require.NoError(t, err)
	assert.Equal(t, r.ToEvent(), event)
}
