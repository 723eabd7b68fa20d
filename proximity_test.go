package server

import (
	"reflect"
	"testing"
)

func snapshotAt(positions map[string][2]float64) map[string]Participant {
	snapshot := make(map[string]Participant, len(positions))
	for id, pos := range positions {
		snapshot[id] = Participant{ID: id, X: pos[0], Y: pos[1]}
	}
	return snapshot
}

func TestComputeRelationsIsPure(t *testing.T) {
	snapshot := snapshotAt(map[string][2]float64{
		"a": {0, 0},
		"b": {30, 40},
		"c": {500, 500},
	})
	thresholds := DefaultThresholds()

	first := ComputeRelations(snapshot, thresholds)
	second := ComputeRelations(snapshot, thresholds)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs produced different relations:\n%v\n%v", first, second)
	}
}

func TestInteractionEligibilityFollowsMovement(t *testing.T) {
	positions := map[string][2]float64{"a": {0, 0}, "b": {90, 0}}
	relations := ComputeRelations(snapshotAt(positions), DefaultThresholds())

	if _, ok := relations.InteractionEligible[makePair("a", "b")]; !ok {
		t.Fatalf("participants 90 units apart should be interaction eligible")
	}

	positions["b"] = [2]float64{200, 0}
	relations = ComputeRelations(snapshotAt(positions), DefaultThresholds())

	if _, ok := relations.InteractionEligible[makePair("a", "b")]; ok {
		t.Fatalf("participants 200 units apart should not be interaction eligible")
	}
}

func TestVideoEligibilityFollowsMovement(t *testing.T) {
	positions := map[string][2]float64{"a": {0, 0}, "b": {100, 0}}
	relations := ComputeRelations(snapshotAt(positions), DefaultThresholds())

	if _, ok := relations.VideoEligible[makePair("a", "b")]; !ok {
		t.Fatalf("participants 100 units apart should be video eligible")
	}
	if _, ok := relations.InteractionEligible[makePair("a", "b")]; ok {
		t.Fatalf("100 units is exactly the interaction radius; strict gating should exclude it")
	}

	positions["b"] = [2]float64{400, 0}
	relations = ComputeRelations(snapshotAt(positions), DefaultThresholds())

	if _, ok := relations.VideoEligible[makePair("a", "b")]; ok {
		t.Fatalf("participants 400 units apart should not be video eligible")
	}
}

func TestRelationsUseEuclideanDistance(t *testing.T) {
	// 60/80 legs give a hypotenuse of exactly 100: outside interaction,
	// inside video.
	snapshot := snapshotAt(map[string][2]float64{"a": {0, 0}, "b": {60, 80}})
	relations := ComputeRelations(snapshot, DefaultThresholds())

	pair := makePair("a", "b")
	if _, ok := relations.InteractionEligible[pair]; ok {
		t.Fatalf("diagonal distance 100 should not be interaction eligible")
	}
	if _, ok := relations.VideoEligible[pair]; !ok {
		t.Fatalf("diagonal distance 100 should be video eligible")
	}
}

func TestPartnersAreSorted(t *testing.T) {
	snapshot := snapshotAt(map[string][2]float64{
		"hub": {0, 0},
		"z":   {10, 0},
		"a":   {0, 10},
		"m":   {-10, 0},
		"far": {1000, 1000},
	})
	relations := ComputeRelations(snapshot, DefaultThresholds())

	got := relations.InteractionPartners("hub")
	want := []string{"a", "m", "z"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected partners %v, got %v", want, got)
	}

	if partners := relations.VideoPartners("far"); len(partners) != 0 {
		t.Fatalf("isolated participant should have no partners, got %v", partners)
	}
}

func TestPairNormalization(t *testing.T) {
	if makePair("b", "a") != makePair("a", "b") {
		t.Fatalf("pair order should not depend on argument order")
	}
	pair := makePair("b", "a")
	if pair.Other("a") != "b" || pair.Other("b") != "a" {
		t.Fatalf("Other returned wrong endpoint: %+v", pair)
	}
	if pair.Other("c") != "" {
		t.Fatalf("Other for a non-member should be empty")
	}
	if !pair.Contains("a") || pair.Contains("c") {
		t.Fatalf("Contains misreported membership")
	}
}
