package picsync

import (
	"strings"
)

const (
	KindLike    = "like"
	KindEmoji   = "emoji"
	KindComment = "comment"
)

const (
	ActionCreate = "create"
	ActionDelete = "delete"
)

// MockImagePrefix marks image ids synthesized by the photo adapter's
// offline fallback. Records may reference these ids like any other.
const MockImagePrefix = "mock-"

// Interaction is one user action against one image. Records are created
// and deleted wholesale, never updated.
type Interaction struct {
	ID        string `json:"id"`
	Type      string `json:"type"` // like | emoji | comment
	ImageID   string `json:"imageId"`
	Payload   string `json:"payload,omitempty"`
	Username  string `json:"username"`
	UserColor string `json:"userColor,omitempty"`
	Timestamp int64  `json:"timestamp"` // client clock, ms since epoch
}

// Draft is an Interaction minus the fields the store assigns at write
// time (id and timestamp).
type Draft struct {
	Type      string
	ImageID   string
	Payload   string
	Username  string
	UserColor string
}

// Event is the change notification fanned out to live subscriptions.
type Event struct {
	Action string      `json:"action"` // create | delete
	Item   Interaction `json:"item"`
}

type ImageURLs struct {
	Regular string `json:"regular"`
	Small   string `json:"small"`
	Thumb   string `json:"thumb"`
}

type ImageAuthor struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Image is external, read-only metadata. Never stored locally.
type Image struct {
	ID          string      `json:"id"`
	URLs        ImageURLs   `json:"urls"`
	User        ImageAuthor `json:"user"`
	Description string      `json:"alt_description"`
}

// Identity is the anonymous per-browser-profile persona attached to
// every write. Denormalized into records at write time.
type Identity struct {
	Username string `json:"username"`
	Color    string `json:"color"`
}

func ValidKind(kind string) bool {
	switch kind {
	case KindLike, KindEmoji, KindComment:
		return true
	}
	return false
}

func IsMockImageID(id string) bool {
	return strings.HasPrefix(id, MockImagePrefix)
}
