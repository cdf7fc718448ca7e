package sync

import (
	"sort"

	"github.com/nhle/gh-notifier/internal/model"
)

// Process drops self-authored notifications and orders the rest by
// UpdatedAt, newest first. Ties keep their response order. The input
// slice is not modified.
func Process(items []model.Notification) []model.Notification {
	out := make([]model.Notification, 0, len(items))
	for _, n := range items {
		if n.SelfAuthored() {
			continue
		}
		out = append(out, n)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})

	return out
}
