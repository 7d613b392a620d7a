package events

const (
	// Streams
	UserEventsStream           = "USER_EVENTS"
	ContestEventsStream        = "CONTEST_EVENTS"
	RewardEventsStream         = "REWARD_EVENTS"
	RewardCommandsStream       = "REWARD_COMMANDS"
	NotificationCommandsStream = "NOTIFICATION_COMMANDS"

	// Inbound events
	UserCreated       = "events.user.created"
	UserUpdated       = "events.user.updated"
	UserFollowed      = "events.user.followed"
	UserPhoneVerified = "events.user.phoneVerified"
	UserEmailVerified = "events.user.emailVerified"

	VoteCreated                = "events.contest.voteCreated"
	ContestSeasonCreated       = "events.contest.seasonCreated"
	ContestSeasonVotingStarted = "events.contest.votingStarted"
	ContestWinnersAnnounced    = "events.contest.winnersAnnounced"
	ContestantJoined           = "events.contest.contestantJoined"
	ContestantDeleted          = "events.contest.contestantDeleted"

	// Outbound events
	RewardGranted       = "events.rewards.granted"
	RewardCustomWinners = "events.rewards.customWinners"

	// Commands
	RewardCustomCommand     = "commands.rewards.custom"
	NotificationSendCommand = "commands.notification.send"

	// Event Wildcards
	UserEventsWildcard     = "events.user.*"
	ContestEventsWildcard  = "events.contest.*"
	RewardEventsWildcard   = "events.rewards.*"
	RewardCommandsWildcard = "commands.rewards.*"
)

// Event type strings carried in outbound payloads.
const (
	EventTypeRewardGranted          = "REWARD_GRANTED"
	EventTypeCustomWinners          = "CUSTOM_WINNERS"
	CommandTypeSendPushNotification = "SEND_PUSH_NOTIFICATION"
)
