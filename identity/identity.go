// Package identity generates and persists the anonymous per-profile
// persona attached to every interaction write.
package identity

import (
	crand "crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/picsync/picsync"
)

var adjectives = []string{"Happy", "Swift", "Clever", "Bright", "Cool", "Epic", "Kind", "Bold"}
var nouns = []string{"Panda", "Eagle", "Fox", "Tiger", "Whale", "Lion", "Wolf", "Deer"}
var palette = []string{"#3b82f6", "#ef4444", "#10b981", "#f59e0b", "#8b5cf6", "#ec4899"}

const stateFile = "user.json"

// Provider hands out the stable identity for one state directory. The
// identity is generated once, persisted, and reused forever after;
// an unusable state directory degrades to a process-lifetime identity.
type Provider struct {
	dir string

	mu     sync.Mutex
	cached *picsync.Identity
}

func NewProvider(stateDir string) *Provider {
	return &Provider{dir: stateDir}
}

// Identity returns the persisted persona, generating and saving one on
// first use. It never fails: persistence errors fall back to an
// in-memory identity for the rest of the process.
func (p *Provider) Identity() picsync.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil {
		return *p.cached
	}

	path := filepath.Join(p.dir, stateFile)

	data, err := os.ReadFile(path)
	if err == nil {
		var stored picsync.Identity
		if json.Unmarshal(data, &stored) == nil && stored.Username != "" {
			p.cached = &stored
			return stored
		}
	}

	generated := Generate()
	p.cached = &generated

	encoded, err := json.Marshal(generated)
	if err == nil {
		err = os.MkdirAll(p.dir, 0o755)
		if err == nil {
			err = os.WriteFile(path, encoded, 0o644)
		}
	}
	if err != nil {
		slog.Warn(
			"Identity persistence unavailable, using session-only identity",
			slog.String("error", err.Error()),
			slog.String("module", "identity"),
		)
	}

	return generated
}

// Generate synthesizes a fresh adjective+noun+number persona with a
// palette color.
func Generate() picsync.Identity {
	return picsync.Identity{
		Username: fmt.Sprintf(
			"%s%s%d",
			adjectives[randomIndex(len(adjectives))],
			nouns[randomIndex(len(nouns))],
			randomIndex(1000),
		),
		Color: palette[randomIndex(len(palette))],
	}
}

func randomIndex(n int) int {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return int(time.Now().UnixNano()) % n
	}
	return int(binary.LittleEndian.Uint64(b[:]) % uint64(n))
}

// Session groups the persisted identity with the ephemeral UI
// selection. The two have independent lifecycles: the identity lives
// for the profile, the selection resets freely and is never persisted.
type Session struct {
	Identity picsync.Identity

	mu       sync.Mutex
	selected *picsync.Image
}

func NewSession(provider *Provider) *Session {
	return &Session{Identity: provider.Identity()}
}

// Select replaces the focused image; nil closes the detail view.
func (s *Session) Select(image *picsync.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = image
}

// Selected returns the currently focused image, or nil.
func (s *Session) Selected() *picsync.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}
