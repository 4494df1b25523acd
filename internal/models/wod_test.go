package models

import "testing"

func sampleWod() ParsedWod {
	reps, rounds := 10, 3
	id := int64(7)
	return ParsedWod{
		Title: "Hero WOD",
		Blocks: []ParsedBlock{{
			ID:        "b1",
			BlockType: BlockRounds,
			Rounds:    &rounds,
			Scenarios: []ParsedScenario{
				{Code: "A", Movements: []ParsedMovement{{NameRaw: "Burpees", Reps: &reps, MovementID: &id}}},
				{Code: "B", Movements: []ParsedMovement{{NameRaw: "Row"}, {NameRaw: "Run"}}},
			},
		}},
	}
}

// TestMovementCount verifies movements are counted across all scenarios.
func TestMovementCount(t *testing.T) {
	if n := sampleWod().MovementCount(); n != 3 {
		t.Errorf("MovementCount = %d, want 3", n)
	}
	if n := (ParsedWod{}).MovementCount(); n != 0 {
		t.Errorf("empty MovementCount = %d, want 0", n)
	}
}

// TestCloneIndependence verifies writes through a clone never reach the original.
func TestCloneIndependence(t *testing.T) {
	orig := sampleWod()
	c := orig.Clone()

	*c.Blocks[0].Rounds = 99
	*c.Blocks[0].Scenarios[0].Movements[0].Reps = 99
	*c.Blocks[0].Scenarios[0].Movements[0].MovementID = 99
	c.Blocks[0].Scenarios[1].Movements[0].NameRaw = "Bike"
	c.Blocks[0].Scenarios = append(c.Blocks[0].Scenarios, ParsedScenario{Code: "C"})

	b := orig.Blocks[0]
	if *b.Rounds != 3 {
		t.Errorf("rounds leaked: %d", *b.Rounds)
	}
	if *b.Scenarios[0].Movements[0].Reps != 10 {
		t.Errorf("reps leaked: %d", *b.Scenarios[0].Movements[0].Reps)
	}
	if *b.Scenarios[0].Movements[0].MovementID != 7 {
		t.Errorf("movement id leaked: %d", *b.Scenarios[0].Movements[0].MovementID)
	}
	if b.Scenarios[1].Movements[0].NameRaw != "Row" {
		t.Errorf("name leaked: %q", b.Scenarios[1].Movements[0].NameRaw)
	}
	if len(b.Scenarios) != 2 {
		t.Errorf("scenarios = %d, want 2", len(b.Scenarios))
	}
}

// TestCloneKeepsEmptySlices verifies empty collections stay non-nil so they
// serialize as [] rather than null.
func TestCloneKeepsEmptySlices(t *testing.T) {
	w := ParsedWod{Blocks: []ParsedBlock{}}
	if c := w.Clone(); c.Blocks == nil {
		t.Error("clone of empty blocks is nil")
	}
	s := ParsedScenario{Code: "A", Movements: []ParsedMovement{}}
	if c := s.Clone(); c.Movements == nil {
		t.Error("clone of empty movements is nil")
	}
}
