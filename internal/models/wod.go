package models

// BlockType classifies a parsed block from its header keywords.
type BlockType string

const (
	BlockForTime   BlockType = "for_time"
	BlockAMRAP     BlockType = "amrap"
	BlockEMOM      BlockType = "emom"
	BlockIntervals BlockType = "intervals"
	BlockRounds    BlockType = "rounds"
	BlockUnknown   BlockType = "unknown"
)

// Pattern records how the scenarios of a block interleave.
type Pattern string

const (
	PatternNone Pattern = ""
	PatternA    Pattern = "A"
	PatternAB   Pattern = "A_B"
	PatternABC  Pattern = "A_B_C"
)

// Mode is the execution mode of a movement (solo, synchronized, shared reps).
type Mode string

const (
	ModeIndividual Mode = "individual"
	ModeSync       Mode = "sync"
	ModeShared     Mode = "shared"
)

// ParsedMovement is one movement occurrence inside a scenario.
type ParsedMovement struct {
	NameRaw         string   `json:"name_raw"`
	MovementID      *int64   `json:"movement_id,omitempty"`
	MatchConfidence *float64 `json:"match_confidence,omitempty"`
	Reps            *int     `json:"reps,omitempty"`
	Load            *float64 `json:"load,omitempty"`
	LoadUnit        string   `json:"load_unit,omitempty"`
	DistanceMeters  *int     `json:"distance_meters,omitempty"`
	DurationSeconds *int     `json:"duration_seconds,omitempty"`
	Calories        *int     `json:"calories,omitempty"`
	Mode            Mode     `json:"mode,omitempty"`
	Cap             *bool    `json:"cap,omitempty"`
}

// ParsedScenario is a lettered variant inside a block (A, B, C).
type ParsedScenario struct {
	Code      string           `json:"code"`
	Movements []ParsedMovement `json:"movements"`
}

// ParsedBlock is one structural unit of a workout.
type ParsedBlock struct {
	ID          string           `json:"id"`
	BlockType   BlockType        `json:"block_type"`
	Title       string           `json:"title,omitempty"`
	Rounds      *int             `json:"rounds,omitempty"`
	WorkSeconds *int             `json:"work_seconds,omitempty"`
	RestSeconds *int             `json:"rest_seconds,omitempty"`
	Pattern     Pattern          `json:"pattern,omitempty"`
	Scenarios   []ParsedScenario `json:"scenarios"`
}

// ParsedWod is the result of parsing one raw workout text.
type ParsedWod struct {
	Title  string        `json:"title,omitempty"`
	Notes  string        `json:"notes,omitempty"`
	Blocks []ParsedBlock `json:"blocks"`
}

// MovementCount returns the number of movements across all blocks and scenarios.
func (w ParsedWod) MovementCount() int {
	n := 0
	for _, b := range w.Blocks {
		for _, s := range b.Scenarios {
			n += len(s.Movements)
		}
	}
	return n
}

// Clone returns a deep copy sharing no slices or pointers with w.
func (w ParsedWod) Clone() ParsedWod {
	out := ParsedWod{Title: w.Title, Notes: w.Notes, Blocks: make([]ParsedBlock, len(w.Blocks))}
	for i, b := range w.Blocks {
		out.Blocks[i] = b.Clone()
	}
	return out
}

// Clone returns a deep copy of the block.
func (b ParsedBlock) Clone() ParsedBlock {
	out := b
	out.Rounds = clonePtr(b.Rounds)
	out.WorkSeconds = clonePtr(b.WorkSeconds)
	out.RestSeconds = clonePtr(b.RestSeconds)
	out.Scenarios = make([]ParsedScenario, len(b.Scenarios))
	for i, s := range b.Scenarios {
		out.Scenarios[i] = s.Clone()
	}
	return out
}

// Clone returns a deep copy of the scenario.
func (s ParsedScenario) Clone() ParsedScenario {
	out := ParsedScenario{Code: s.Code, Movements: make([]ParsedMovement, len(s.Movements))}
	for i, m := range s.Movements {
		out.Movements[i] = m.Clone()
	}
	return out
}

// Clone returns a copy of the movement with its own optional fields.
func (m ParsedMovement) Clone() ParsedMovement {
	out := m
	out.MovementID = clonePtr(m.MovementID)
	out.MatchConfidence = clonePtr(m.MatchConfidence)
	out.Reps = clonePtr(m.Reps)
	out.Load = clonePtr(m.Load)
	out.DistanceMeters = clonePtr(m.DistanceMeters)
	out.DurationSeconds = clonePtr(m.DurationSeconds)
	out.Calories = clonePtr(m.Calories)
	out.Cap = clonePtr(m.Cap)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
