package rules

import "github.com/burakmert236/goodswipe-rewards/common/models"

// followerMilestones maps follower counts to their bonus: 1→1, 5→4, then 5 XP every 5 followers up to 100.
var followerMilestones = func() map[int]int {
	m := map[int]int{1: 1, 5: 4}
	for count := 10; count <= 100; count += 5 {
		m[count] = 5
	}
	return m
}()

// xpMilestones maps referred-user XP thresholds to the referrer's bonus.
var xpMilestones = map[int]int{
	100: 10,
	200: 20,
	300: 30,
	400: 40,
	500: 50,
}

const xpMilestoneStep = 100

// FollowerMilestoneFor returns the milestone reached at exactly followerCount followers.
func FollowerMilestoneFor(followerCount int) (models.FollowerMilestone, bool) {
	reward, ok := followerMilestones[followerCount]
	if !ok {
		return models.FollowerMilestone{}, false
	}
	return models.FollowerMilestone{FollowerCount: followerCount, Reward: reward}, true
}

// XpMilestoneFor returns the highest milestone not exceeding xp. Totals past
// the last threshold, or below the first, reach none.
func XpMilestoneFor(xp int) (models.XpMilestone, bool) {
	if xp < 0 {
		return models.XpMilestone{}, false
	}
	threshold := xp / xpMilestoneStep * xpMilestoneStep
	reward, ok := xpMilestones[threshold]
	if !ok {
		return models.XpMilestone{}, false
	}
	return models.XpMilestone{XpCount: threshold, Reward: reward}, true
}

// CrossesMilestone reports whether moving from xpBefore to xpAfter crossed milestone.
func CrossesMilestone(milestone models.XpMilestone, xpBefore, xpAfter int) bool {
	return xpBefore < milestone.XpCount && milestone.XpCount <= xpAfter
}
