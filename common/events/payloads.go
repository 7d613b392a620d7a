package events

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Envelope wraps every event on the bus: the event type and its detail.
type Envelope struct {
	Type   string         `mapstructure:"type"`
	Detail map[string]any `mapstructure:"detail"`
}

func (e Envelope) ToMap() map[string]any {
	return map[string]any{
		"type":   e.Type,
		"detail": e.Detail,
	}
}

// Inbound payloads

type UserCreatedEvent struct {
	Id          string `mapstructure:"id"`
	Username    string `mapstructure:"username"`
	RefUsername string `mapstructure:"refUsername"`
}

type UserUpdatedEvent struct {
	Id       string `mapstructure:"id"`
	Username string `mapstructure:"username"`
}

// UserVerifiedEvent carries both phone and email verifications.
type UserVerifiedEvent struct {
	Id string `mapstructure:"id"`
}

type UserFollowedEvent struct {
	FollowedProfileId  string `mapstructure:"followedProfileId"`
	FollowingProfileId string `mapstructure:"followingProfileId"`
	FollowStatus       string `mapstructure:"followStatus"`
	FollowerCount      int    `mapstructure:"followerCount"`
}

type Voter struct {
	Id          string `mapstructure:"id"`
	RemainVotes int    `mapstructure:"remainVotes"`
}

type VotedContest struct {
	Id string `mapstructure:"id"`
}

type VoteCreatedEvent struct {
	Voter   Voter        `mapstructure:"voter"`
	Contest VotedContest `mapstructure:"contest"`
}

type ContestWinner struct {
	UserId    string `mapstructure:"userId"`
	Username  string `mapstructure:"username"`
	AvatarUrl string `mapstructure:"avatarUrl"`
	Votes     int    `mapstructure:"votes"`
}

type ContestWinnersAnnouncedEvent struct {
	ContestId string          `mapstructure:"contestId"`
	Winners   []ContestWinner `mapstructure:"winners"`
	VoterIds  []string        `mapstructure:"voterIds"`
}

type ContestantJoinedEvent struct {
	Id        string `mapstructure:"id"`
	UserId    string `mapstructure:"userId"`
	Contest   string `mapstructure:"contest"`
	Name      string `mapstructure:"name"`
	CreatedAt int64  `mapstructure:"createdAt"`
	SourceId  string `mapstructure:"sourceId"`
	Avatar    string `mapstructure:"avatar"`
}

type ContestantDeletedEvent struct {
	Id string `mapstructure:"id"`
}

// ContestSeasonEvent is shared by season created and voting started.
type ContestSeasonEvent struct {
	Id              string `mapstructure:"id"`
	ConfigurationId string `mapstructure:"configurationId"`
	Name            string `mapstructure:"name"`
	Status          string `mapstructure:"status"`
}

type CustomRewardCommand struct {
	Usernames       []string `mapstructure:"usernames"`
	ActivityMessage string   `mapstructure:"activityMessage"`
	Reward          int      `mapstructure:"reward"`
	ContestId       string   `mapstructure:"contestId"`
	PostMessage     string   `mapstructure:"postMessage"`
}

// Outbound payloads

type CustomWinner struct {
	UserId              string
	Username            string
	ContestantId        string
	ContestantCreatedAt int64
}

type CustomWinnersEvent struct {
	ContestId   string
	Winners     []CustomWinner
	PostMessage string
}

func (e CustomWinnersEvent) ToMap() map[string]any {
	winners := make([]any, 0, len(e.Winners))
	for _, w := range e.Winners {
		winners = append(winners, map[string]any{
			"userId":              w.UserId,
			"username":            w.Username,
			"contestantId":        w.ContestantId,
			"contestantCreatedAt": w.ContestantCreatedAt,
		})
	}
	return map[string]any{
		"contestId":   e.ContestId,
		"winners":     winners,
		"postMessage": e.PostMessage,
	}
}

// Notification is the detail of a SEND_PUSH_NOTIFICATION command.
type Notification struct {
	Message      string
	Url          string
	Participants []string
}

func (n Notification) ToMap() map[string]any {
	participants := make([]any, 0, len(n.Participants))
	for _, p := range n.Participants {
		participants = append(participants, p)
	}
	return map[string]any{
		"command": CommandTypeSendPushNotification,
		"details": map[string]any{
			"message":      n.Message,
			"url":          n.Url,
			"participants": participants,
		},
	}
}

// Decode maps a payload produced by structpb onto T. Numbers arrive as
// float64 and are converted to the target field types.
func Decode[T any](in map[string]any) (T, error) {
	var out T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(in); err != nil {
		return out, fmt.Errorf("failed to decode %T: %w", out, err)
	}
	return out, nil
}
