package notifylist

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/gh-notifier/internal/model"
)

func TestGroup_Matches(t *testing.T) {
	tests := []struct {
		group  Group
		reason string
		want   bool
	}{
		{GroupAll, model.ReasonMention, true},
		{GroupCIActivity, model.ReasonCIActivity, true},
		{GroupCIActivity, model.ReasonMention, false},
		{GroupParticipating, model.ReasonParticipating, true},
		{GroupReviewRequested, model.ReasonReviewRequested, true},
		{GroupRest, model.ReasonMention, true},
		{GroupRest, "security_alert", true},
		{GroupRest, model.ReasonCIActivity, false},
		{GroupRest, model.ReasonReviewRequested, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.group)+"/"+tt.reason, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.group.Matches(tt.reason))
		})
	}
}

func TestGroup_NextWraps(t *testing.T) {
	g := GroupAll
	for range Groups {
		g = g.next()
	}
	assert.Equal(t, GroupAll, g)
	assert.Equal(t, GroupAll, Group("unknown").next())
}

func TestGroup_Label(t *testing.T) {
	assert.Equal(t, "CI ACTIVITY", GroupCIActivity.Label())
	assert.Equal(t, "REVIEW REQUESTED", GroupReviewRequested.Label())
}
