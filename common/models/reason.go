package models

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

type RewardType string

const (
	RewardContestantJoined               RewardType = "CONTESTANT_JOINED"
	RewardContestVoter                   RewardType = "CONTEST_VOTER"
	RewardContestWinner                  RewardType = "CONTEST_WINNER"
	RewardCustom                         RewardType = "CUSTOM"
	RewardAccountCreated                 RewardType = "ACCOUNT_CREATED" // Deprecated
	RewardPhoneNumberVerified            RewardType = "PHONE_NUMBER_VERIFIED"
	RewardEmailVerified                  RewardType = "EMAIL_VERIFIED"
	RewardInviteAcceptedReferral         RewardType = "INVITE_ACCEPTED_REFERRAL"
	RewardInviteAcceptedUser             RewardType = "INVITE_ACCEPTED_USER"
	RewardUserDailyVotesConsumed         RewardType = "USER_DAILY_VOTES_CONSUMED"
	RewardFollowerMilestoneReached       RewardType = "FOLLOWER_MILESTONE_REACHED"
	RewardReferredUserXpMilestoneReached RewardType = "REFERRED_USER_XP_MILESTONE_REACHED"
)

// IsOneTime reports whether a user may receive this reward at most once.
func (t RewardType) IsOneTime() bool {
	switch t {
	case RewardAccountCreated, RewardPhoneNumberVerified, RewardEmailVerified, RewardInviteAcceptedUser:
		return true
	}
	return false
}

// RewardReason is the closed set of reasons a reward can be granted for.
type RewardReason interface {
	Type() RewardType
}

type ContestantJoinedReason struct {
	ContestId string `mapstructure:"contestId"`
}

type VoterInfo struct {
	RemainVotes int `mapstructure:"remainVotes"`
}

type ContestVoterReason struct {
	ContestId string    `mapstructure:"contestId"`
	Voter     VoterInfo `mapstructure:"voter"`
}

type ContestWinnerReason struct {
	ContestId string `mapstructure:"contestId"`
	Position  int    `mapstructure:"position"`
}

type CustomReason struct {
	ActivityMessage string `mapstructure:"activityMessage,omitempty"`
	ContestId       string `mapstructure:"contestId,omitempty"`
	Reward          int    `mapstructure:"reward"`
}

// Deprecated: account creation no longer grants XP.
type AccountCreatedReason struct{}

type PhoneNumberVerifiedReason struct{}

type EmailVerifiedReason struct{}

type InviteAcceptedReferralReason struct {
	RefereeUsername string `mapstructure:"refereeUsername"`
}

type InviteAcceptedUserReason struct{}

type UserDailyVotesConsumedReason struct{}

type FollowerMilestone struct {
	FollowerCount int `mapstructure:"followerCount"`
	Reward        int `mapstructure:"reward"`
}

type FollowerMilestoneReachedReason struct {
	Milestone FollowerMilestone `mapstructure:"milestone"`
}

type XpMilestone struct {
	XpCount int `mapstructure:"xpCount"`
	Reward  int `mapstructure:"reward"`
}

type ReferredUserXpMilestoneReachedReason struct {
	SourceUserId string      `mapstructure:"sourceUserId"`
	Milestone    XpMilestone `mapstructure:"milestone"`
}

func (ContestantJoinedReason) Type() RewardType { return RewardContestantJoined }
func (ContestVoterReason) Type() RewardType { return RewardContestVoter }
func (ContestWinnerReason) Type() RewardType { return RewardContestWinner }
func (CustomReason) Type() RewardType { return RewardCustom }
func (AccountCreatedReason) Type() RewardType { return RewardAccountCreated }
func (PhoneNumberVerifiedReason) Type() RewardType { return RewardPhoneNumberVerified }
func (EmailVerifiedReason) Type() RewardType { return RewardEmailVerified }
func (InviteAcceptedReferralReason) Type() RewardType { return RewardInviteAcceptedReferral }
func (InviteAcceptedUserReason) Type() RewardType { return RewardInviteAcceptedUser }
func (UserDailyVotesConsumedReason) Type() RewardType { return RewardUserDailyVotesConsumed }
func (FollowerMilestoneReachedReason) Type() RewardType {
	return RewardFollowerMilestoneReached
}
func (ReferredUserXpMilestoneReachedReason) Type() RewardType {
	return RewardReferredUserXpMilestoneReached
}

const reasonTypeKey = "type"

var reasonDecoders = map[RewardType]func(map[string]any) (RewardReason, error){
	RewardContestantJoined:               decodeReason[ContestantJoinedReason],
	RewardContestVoter:                   decodeReason[ContestVoterReason],
	RewardContestWinner:                  decodeReason[ContestWinnerReason],
	RewardCustom:                         decodeReason[CustomReason],
	RewardAccountCreated:                 decodeReason[AccountCreatedReason],
	RewardPhoneNumberVerified:            decodeReason[PhoneNumberVerifiedReason],
	RewardEmailVerified:                  decodeReason[EmailVerifiedReason],
	RewardInviteAcceptedReferral:         decodeReason[InviteAcceptedReferralReason],
	RewardInviteAcceptedUser:             decodeReason[InviteAcceptedUserReason],
	RewardUserDailyVotesConsumed:         decodeReason[UserDailyVotesConsumedReason],
	RewardFollowerMilestoneReached:       decodeReason[FollowerMilestoneReachedReason],
	RewardReferredUserXpMilestoneReached: decodeReason[ReferredUserXpMilestoneReachedReason],
}

// EncodeReason flattens a reason into a map tagged with its "type".
func EncodeReason(reason RewardReason) (map[string]any, error) {
	if reason == nil {
		return nil, fmt.Errorf("reward reason is nil")
	}

	out := map[string]any{}
	if err := mapstructure.Decode(reason, &out); err != nil {
		return nil, fmt.Errorf("failed to encode %s reason: %w", reason.Type(), err)
	}
	out[reasonTypeKey] = string(reason.Type())
	return out, nil
}

// DecodeReason rebuilds the concrete reason named by the "type" entry.
func DecodeReason(in map[string]any) (RewardReason, error) {
	raw, ok := in[reasonTypeKey].(string)
	if !ok {
		return nil, fmt.Errorf("reward reason has no type")
	}

	decode, ok := reasonDecoders[RewardType(raw)]
	if !ok {
		return nil, fmt.Errorf("unknown reward type %q", raw)
	}
	return decode(in)
}

func decodeReason[R RewardReason](in map[string]any) (RewardReason, error) {
	var reason R
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &reason,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(in); err != nil {
		return nil, fmt.Errorf("failed to decode %s reason: %w", reason.Type(), err)
	}
	return reason, nil
}

// KnownRewardTypes lists every reward type in declaration order.
func KnownRewardTypes() []RewardType {
	return []RewardType{
		RewardContestantJoined,
		RewardContestVoter,
		RewardContestWinner,
		RewardCustom,
		RewardAccountCreated,
		RewardPhoneNumberVerified,
		RewardEmailVerified,
		RewardInviteAcceptedReferral,
		RewardInviteAcceptedUser,
		RewardUserDailyVotesConsumed,
		RewardFollowerMilestoneReached,
		RewardReferredUserXpMilestoneReached,
	}
}
