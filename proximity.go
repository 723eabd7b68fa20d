package server

import (
	"math"
	"sort"
)

// Default gating radii, in world units. They match the radii the client uses
// for its "too far away" hint and its video overlay, so server-side gating
// never disagrees with what the user sees.
const (
	DefaultInteractionThreshold = 100.0
	DefaultVideoThreshold       = 150.0
)

// Thresholds carries the gating radii for the two derived relations.
type Thresholds struct {
	Interaction float64
	Video       float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Interaction: DefaultInteractionThreshold,
		Video:       DefaultVideoThreshold,
	}
}

// Pair is an unordered participant pair, normalized so A < B.
type Pair struct {
	A string
	B string
}

func makePair(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Contains reports whether id is one of the pair's endpoints.
func (p Pair) Contains(id string) bool {
	return p.A == id || p.B == id
}

// Other returns the opposite endpoint, or "" when id is not in the pair.
func (p Pair) Other(id string) string {
	switch id {
	case p.A:
		return p.B
	case p.B:
		return p.A
	default:
		return ""
	}
}

// Relations holds the two threshold-gated pair sets derived from one
// registry snapshot.
type Relations struct {
	InteractionEligible map[Pair]struct{}
	VideoEligible       map[Pair]struct{}
}

// ComputeRelations derives both relations from a snapshot. It is a pure
// function: identical snapshots and thresholds always produce identical
// relation sets. Every unordered pair is checked, which is quadratic in the
// participant count; fine for the populations this server targets.
func ComputeRelations(snapshot map[string]Participant, thresholds Thresholds) Relations {
	relations := Relations{
		InteractionEligible: make(map[Pair]struct{}),
		VideoEligible:       make(map[Pair]struct{}),
	}

	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a := snapshot[ids[i]]
			b := snapshot[ids[j]]
			d := math.Hypot(a.X-b.X, a.Y-b.Y)
			pair := makePair(a.ID, b.ID)
			if d < thresholds.Interaction {
				relations.InteractionEligible[pair] = struct{}{}
			}
			if d < thresholds.Video {
				relations.VideoEligible[pair] = struct{}{}
			}
		}
	}
	return relations
}

// InteractionPartners returns the ids interaction-eligible with id, sorted.
func (r Relations) InteractionPartners(id string) []string {
	return partners(r.InteractionEligible, id)
}

// VideoPartners returns the ids video-eligible with id, sorted.
func (r Relations) VideoPartners(id string) []string {
	return partners(r.VideoEligible, id)
}

func partners(pairs map[Pair]struct{}, id string) []string {
	var out []string
	for pair := range pairs {
		if other := pair.Other(id); other != "" {
			out = append(out, other)
		}
	}
	sort.Strings(out)
	return out
}
