package event

import (
	"math/rand"
	"testing"

	"github.com/imagine-project/channelserver/internal/definitions"
	"github.com/imagine-project/channelserver/internal/model"
)

func TestSequenceXP_OnlyRewardsMilestones(t *testing.T) {
	rewarded := map[int32]bool{}
	for s := int32(1); s <= 260; s++ {
		if sequenceXP(s) > 0 {
			rewarded[s] = true
		}
	}
	want := []int32{5, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 150, 200, 250}
	for _, s := range want {
		if !rewarded[s] {
			t.Errorf("sequence %d: want a reward, got none", s)
		}
	}
	nonMilestones := []int32{1, 4, 6, 15, 99, 101, 149, 151, 199}
	for _, s := range nonMilestones {
		if sequenceXP(s) != 0 {
			t.Errorf("sequence %d: want no reward, got %d", s, sequenceXP(s))
		}
	}
}

func newTestDemonQuestEngine() (*DemonQuestEngine, *DemonQuestDef) {
	content := definitions.FromFixtures(nil, []definitions.Devil{{ID: 1, RaceID: 10}, {ID: 2, RaceID: 20}}, nil, nil, nil)
	def := &DemonQuestDef{
		Type:        model.DemonQuestKill,
		TargetCount: 5,
		CandidatePool: []DemonQuestCandidate{
			{TargetID: 100, Level: 20, RaceID: 10}, // same race as demon 1 -> excluded for kill
			{TargetID: 200, Level: 20, RaceID: 20}, // eligible
			{TargetID: 300, Level: 90, RaceID: 20}, // out of level range
		},
	}
	e := NewDemonQuestEngine(nil, []*DemonQuestDef{def}, content, rand.New(rand.NewSource(1)))
	return e, def
}

func TestOffer_ExcludesSelfRaceAndOutOfLevelRangeCandidates(t *testing.T) {
	e, _ := newTestDemonQuestEngine()
	demon := &model.Demon{UUID: model.NewUUID(), DevilID: 1, Level: 22}

	for i := 0; i < 20; i++ {
		dq, err := e.Offer(demon, model.DemonQuestKill, 22)
		if err != nil {
			t.Fatalf("Offer: %v", err)
		}
		if dq.TargetID != 200 {
			t.Fatalf("TargetID = %d, want 200 (the only eligible candidate)", dq.TargetID)
		}
	}
}

func TestOffer_ExcludesSelfRaceForSecondDemonRace(t *testing.T) {
	e, _ := newTestDemonQuestEngine()
	demon := &model.Demon{UUID: model.NewUUID(), DevilID: 2, Level: 22}

	// Demon's race is 20: candidate 200 (race 20) is excluded as
	// self-race, candidate 300 is out of the ±10 level range, leaving
	// only candidate 100 (race 10).
	dq, err := e.Offer(demon, model.DemonQuestKill, 22)
	if err != nil {
		t.Fatalf("Offer: %v", err)
	}
	if dq.TargetID != 100 {
		t.Fatalf("TargetID = %d, want 100 (200 is self-race, 300 is out of level range)", dq.TargetID)
	}
}

func TestOffer_RequiresSynthSkillForGatedType(t *testing.T) {
	content := definitions.FromFixtures(nil, nil, nil, nil, nil)
	def := &DemonQuestDef{
		Type:            model.DemonQuestMeleeSynth,
		TargetCount:     1,
		RequiresSkillID: 77,
		CandidatePool:   []DemonQuestCandidate{{TargetID: 1, Level: 10}},
	}
	e := NewDemonQuestEngine(nil, []*DemonQuestDef{def}, content, rand.New(rand.NewSource(1)))

	demon := &model.Demon{UUID: model.NewUUID(), Level: 10}
	if _, err := e.Offer(demon, model.DemonQuestMeleeSynth, 10); err == nil {
		t.Fatalf("expected an error offering a synth quest to a demon lacking the required skill")
	}

	demon.InheritedIDs = []int32{77}
	if _, err := e.Offer(demon, model.DemonQuestMeleeSynth, 10); err != nil {
		t.Fatalf("Offer with required skill present: %v", err)
	}
}

func TestDrawReward_FiltersByCharacterAndDemonState(t *testing.T) {
	def := &DemonQuestDef{
		Type: model.DemonQuestKill,
		RewardPool: []DemonQuestReward{
			{ItemType: 1, Weight: 1, MinLevel: 50}, // demon too low level, excluded
			{ItemType: 2, Weight: 1, MinRace: 99},  // character wrong race, excluded
			{ItemType: 3, Weight: 1},               // eligible
		},
	}
	e := NewDemonQuestEngine(nil, []*DemonQuestDef{def}, nil, rand.New(rand.NewSource(1)))

	char := &model.Character{RaceID: 1}
	demon := &model.Demon{Level: 10, Familiarity: 0}

	for i := 0; i < 10; i++ {
		r, ok := e.DrawReward(model.DemonQuestKill, char, demon, 5)
		if !ok {
			t.Fatalf("DrawReward: expected ok=true")
		}
		if r.ItemType != 3 {
			t.Fatalf("ItemType = %d, want 3 (the only eligible reward)", r.ItemType)
		}
	}
}
