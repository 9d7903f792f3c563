// Package aggregate derives read-only views from interaction log
// snapshots. Every function is pure: it takes the snapshot a
// subscription delivered and computes counts, groupings, and orderings
// without touching the store.
package aggregate

import (
	"sort"

	"github.com/picsync/picsync"
)

// FeedWindow bounds the global activity feed.
const FeedWindow = 20

// LikeSummary is the per-image like view.
type LikeSummary struct {
	Count     int
	LikedByMe bool
}

// Likes counts like records for one image and reports whether any of
// them were written under the current user's name.
func Likes(records []picsync.Interaction, imageID, currentUser string) LikeSummary {
	var summary LikeSummary
	for _, rec := range records {
		if rec.Type != picsync.KindLike || rec.ImageID != imageID {
			continue
		}
		summary.Count++
		if rec.Username == currentUser {
			summary.LikedByMe = true
		}
	}
	return summary
}

// ReactionGroup is one emoji's tally on an image. OwnID carries the id
// of the current user's record when present, enabling toggle-off.
type ReactionGroup struct {
	Emoji string
	Count int
	OwnID string
}

// Reactions groups emoji records for one image by glyph. Groups appear
// in first-occurrence order of the snapshot.
func Reactions(records []picsync.Interaction, imageID, currentUser string) []ReactionGroup {
	var groups []ReactionGroup
	index := map[string]int{}

	for _, rec := range records {
		if rec.Type != picsync.KindEmoji || rec.ImageID != imageID || rec.Payload == "" {
			continue
		}
		i, ok := index[rec.Payload]
		if !ok {
			i = len(groups)
			index[rec.Payload] = i
			groups = append(groups, ReactionGroup{Emoji: rec.Payload})
		}
		groups[i].Count++
		if rec.Username == currentUser {
			groups[i].OwnID = rec.ID
		}
	}
	return groups
}

// OwnReactionID returns the id of the current user's record for one
// emoji, or empty when they have not reacted with it.
func OwnReactionID(records []picsync.Interaction, imageID, emoji, currentUser string) string {
	for _, group := range Reactions(records, imageID, currentUser) {
		if group.Emoji == emoji {
			return group.OwnID
		}
	}
	return ""
}

// Comments returns the comment thread for one image in ascending
// timestamp order. Ties keep arrival order.
func Comments(records []picsync.Interaction, imageID string) []picsync.Interaction {
	var thread []picsync.Interaction
	for _, rec := range records {
		if rec.Type == picsync.KindComment && rec.ImageID == imageID {
			thread = append(thread, rec)
		}
	}
	sort.SliceStable(thread, func(i, j int) bool {
		return thread[i].Timestamp < thread[j].Timestamp
	})
	return thread
}

// GlobalFeed orders all record kinds newest first and truncates to the
// feed window. The log has no order at rest, so sorting happens here
// even though the subscription is already bounded.
func GlobalFeed(records []picsync.Interaction) []picsync.Interaction {
	feed := make([]picsync.Interaction, len(records))
	copy(feed, records)
	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].Timestamp > feed[j].Timestamp
	})
	if len(feed) > FeedWindow {
		feed = feed[:FeedWindow]
	}
	return feed
}

// Toggler is the write surface ToggleEmoji needs from the store.
type Toggler interface {
	Create(draft picsync.Draft) picsync.Interaction
	Delete(id string)
}

// ToggleEmoji removes the current user's reaction when one exists in
// the snapshot, otherwise creates one. Two racing toggles resolve as
// last action wins; that is accepted, not masked.
func ToggleEmoji(store Toggler, records []picsync.Interaction, imageID, emoji string, who picsync.Identity) {
	ownID := OwnReactionID(records, imageID, emoji, who.Username)
	if ownID != "" {
		store.Delete(ownID)
		return
	}
	store.Create(picsync.Draft{
		Type:     picsync.KindEmoji,
		ImageID:  imageID,
		Payload:  emoji,
		Username: who.Username,
	})
}

// CanDelete reports whether the acting identity may delete the record.
// Ownership is a display-name comparison, nothing stronger.
func CanDelete(rec picsync.Interaction, who picsync.Identity) bool {
	return rec.Username == who.Username
}
