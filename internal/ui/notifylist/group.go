package notifylist

import (
	"strings"

	"github.com/nhle/gh-notifier/internal/model"
)

// Group is a reason tab of the notification list.
type Group string

const (
	GroupAll             Group = "all"
	GroupCIActivity      Group = Group(model.ReasonCIActivity)
	GroupParticipating   Group = Group(model.ReasonParticipating)
	GroupReviewRequested Group = Group(model.ReasonReviewRequested)

	// GroupRest holds every reason without a tab of its own.
	GroupRest Group = "rest"
)

// Groups is the tab order used when cycling.
var Groups = []Group{
	GroupAll,
	GroupCIActivity,
	GroupParticipating,
	GroupReviewRequested,
	GroupRest,
}

// Matches reports whether a notification with reason belongs to g.
func (g Group) Matches(reason string) bool {
	switch g {
	case GroupAll, "":
		return true
	case GroupRest:
		switch Group(reason) {
		case GroupCIActivity, GroupParticipating, GroupReviewRequested:
			return false
		}
		return true
	default:
		return reason == string(g)
	}
}

// Label is the tab caption, e.g. "CI ACTIVITY".
func (g Group) Label() string {
	return strings.ToUpper(strings.ReplaceAll(string(g), "_", " "))
}

// next returns the group after g, wrapping around.
func (g Group) next() Group {
	for i, cur := range Groups {
		if cur == g {
			return Groups[(i+1)%len(Groups)]
		}
	}
	return Groups[0]
}
