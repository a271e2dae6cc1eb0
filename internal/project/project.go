// Package project maps primary-store records onto the graph-store shape.
//
// Every defaulting rule lives in Defaults so the policy for missing or
// malformed fields can be read (and tested) in one place. Projection is
// pure: no I/O and no state beyond the injected clock.
package project

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/graphsync/internal/social"
)

// Defaults holds the value substituted for each optional source field.
type Defaults struct {
	Status           social.Status
	InteractionCount int64
	ActivityScore    float64
	// Now supplies the timestamp used when a last-interaction time is absent.
	Now func() time.Time
}

// DefaultDefaults returns the production defaulting policy.
func DefaultDefaults() Defaults {
	return Defaults{
		Status:           social.DefaultStatus,
		InteractionCount: 0,
		ActivityScore:    0,
		Now:              time.Now,
	}
}

// Projector converts primary records into nodes and edges.
type Projector struct {
	defaults Defaults
}

// New creates a Projector. A nil Now falls back to time.Now.
func New(d Defaults) *Projector {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Status == "" {
		d.Status = social.DefaultStatus
	}
	return &Projector{defaults: d}
}

// User projects a user record onto a UserNode.
// The only hard failure is a record without an identifier.
func (p *Projector) User(rec social.UserRecord) (social.UserNode, error) {
	if strings.TrimSpace(rec.ID) == "" {
		return social.UserNode{}, fmt.Errorf("project user %q: empty id", rec.Username)
	}

	score := p.defaults.ActivityScore
	if rec.ActivityMetrics != nil {
		score = rec.ActivityMetrics.InteractionFrequency
	}
	if score < 0 || math.IsNaN(score) || math.IsInf(score, 0) {
		score = 0
	}

	return social.UserNode{
		ID:            rec.ID,
		Username:      rec.Username,
		Interests:     Interests(rec.Interests),
		ActivityScore: score,
	}, nil
}

// Friendship projects an embedded friendship record onto an edge,
// defaulting status, count and timestamp when the record omits them.
// A malformed status token is an error.
func (p *Projector) Friendship(owner string, f social.Friendship) (social.FriendshipEdge, error) {
	if err := checkPair(owner, f.Friend); err != nil {
		return social.FriendshipEdge{}, err
	}

	status := f.Status
	if status == "" {
		status = p.defaults.Status
	}
	if err := status.Validate(); err != nil {
		return social.FriendshipEdge{}, fmt.Errorf("project friendship %s->%s: %w", owner, f.Friend, err)
	}
	count, ok := Count(f.InteractionCount)
	if !ok {
		count = p.defaults.InteractionCount
	}
	last := p.defaults.Now()
	if f.LastInteraction != nil && !f.LastInteraction.IsZero() {
		last = *f.LastInteraction
	}

	return social.FriendshipEdge{
		Owner:  owner,
		Friend: f.Friend,
		EdgeProps: social.EdgeProps{
			Status:           status,
			InteractionCount: count,
			LastInteraction:  last,
		},
	}, nil
}

// Neighbor projects a bare neighbor identifier onto an edge carrying
// only default metadata. Used by the rebuild path.
func (p *Projector) Neighbor(owner, friendID string) (social.FriendshipEdge, error) {
	if err := checkPair(owner, friendID); err != nil {
		return social.FriendshipEdge{}, err
	}
	return social.FriendshipEdge{
		Owner:  owner,
		Friend: friendID,
		EdgeProps: social.EdgeProps{
			Status:           p.defaults.Status,
			InteractionCount: p.defaults.InteractionCount,
			LastInteraction:  p.defaults.Now(),
		},
	}, nil
}

func checkPair(owner, friend string) error {
	if owner == "" {
		return fmt.Errorf("project friendship: empty owner id")
	}
	if friend == "" {
		return fmt.Errorf("project friendship %s: empty friend id", owner)
	}
	if owner == friend {
		return fmt.Errorf("project friendship %s: self edge", owner)
	}
	return nil
}

// Interests normalizes a raw interests field into a sorted set.
// Anything that is not a sequence yields an empty set; non-string
// elements and blank tags are dropped; tags are NFC-normalized and
// duplicates collapsed.
func Interests(raw any) []string {
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []string:
		items = make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
	default:
		return []string{}
	}

	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = norm.NFC.String(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Count coerces a loosely typed interaction count into a non-negative
// integer. ok is false when the value is absent or not numeric, in which
// case the caller substitutes its default. Negative values clamp to 0 and
// values beyond int64 clamp to math.MaxInt64.
func Count(raw any) (n int64, ok bool) {
	var f float64
	switch v := raw.(type) {
	case nil:
		return 0, false
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint64:
		f = float64(v)
	case float64:
		f = v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f < 0 {
		return 0, true
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64, true
	}
	return int64(f), true
}
