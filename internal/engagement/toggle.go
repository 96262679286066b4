// Package engagement implements the membership-toggle semantics shared by
// tweet likes, video likes, and channel subscriptions.
package engagement

import "errors"

// ErrSelfSubscription indicates a user attempted to subscribe to their own channel.
var ErrSelfSubscription = errors.New("cannot subscribe to your own channel")

// Toggle removes actorID from the member set when present and appends it when
// absent, reporting whether it was added. The input slice is not mutated; the
// returned set never contains duplicates of actorID.
func Toggle(set []string, actorID string) ([]string, bool) {
	if Contains(set, actorID) {
		out := make([]string, 0, len(set)-1)
		for _, id := range set {
			if id != actorID {
				out = append(out, id)
			}
		}
		return out, false
	}

	out := make([]string, 0, len(set)+1)
	out = append(out, set...)
	return append(out, actorID), true
}

// ToggleSubscription applies Toggle to a channel's subscriber set, rejecting
// self-subscription.
func ToggleSubscription(subscribers []string, actorID, channelOwnerID string) ([]string, bool, error) {
	if actorID == channelOwnerID {
		return nil, false, ErrSelfSubscription
	}
	set, added := Toggle(subscribers, actorID)
	return set, added, nil
}

// Contains reports membership of actorID in the set.
func Contains(set []string, actorID string) bool {
	for _, id := range set {
		if id == actorID {
			return true
		}
	}
	return false
}
