package matcher

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// KeywordRule maps a keyword found anywhere in a movement name to a
// canonical catalog name.
type KeywordRule struct {
	Keyword string `yaml:"keyword"`
	Target  string `yaml:"target"`
}

// Aliases holds the static lookup tables used besides the catalog itself.
// Names maps an alternative spelling to a canonical catalog name. Keywords
// is ordered; the first rule that applies wins.
type Aliases struct {
	Names    map[string]string `yaml:"names"`
	Keywords []KeywordRule     `yaml:"keywords"`
}

// DefaultAliases returns a fresh copy of the built-in tables. They cover the
// usual English and Spanish spellings seen on whiteboards.
func DefaultAliases() Aliases {
	names := map[string]string{
		"pull ups":        "Pull-Up",
		"pullups":         "Pull-Up",
		"pull up":         "Pull-Up",
		"dominadas":       "Pull-Up",
		"chest to bar":    "Chest-to-Bar Pull-Up",
		"c2b":             "Chest-to-Bar Pull-Up",
		"ctb":             "Chest-to-Bar Pull-Up",
		"toes to bar":     "Toes-to-Bar",
		"t2b":             "Toes-to-Bar",
		"ttb":             "Toes-to-Bar",
		"push ups":        "Push-Up",
		"pushups":         "Push-Up",
		"flexiones":       "Push-Up",
		"hspu":            "Handstand Push-Up",
		"wall balls":      "Wall Ball",
		"wallballs":       "Wall Ball",
		"wb":              "Wall Ball",
		"burpees":         "Burpee",
		"bbjo":            "Burpee Box Jump Over",
		"box jumps":       "Box Jump",
		"saltos al cajon": "Box Jump",
		"du":              "Double Under",
		"dus":             "Double Under",
		"double unders":   "Double Under",
		"dobles":          "Double Under",
		"comba":           "Single Under",
		"single unders":   "Single Under",
		"air squats":      "Air Squat",
		"sentadillas":     "Air Squat",
		"kb swings":       "Kettlebell Swing",
		"kbs":             "Kettlebell Swing",
		"thrusters":       "Thruster",
		"deadlifts":       "Deadlift",
		"peso muerto":     "Deadlift",
		"dl":              "Deadlift",
		"sdhp":            "Sumo Deadlift High Pull",
		"mu":              "Muscle-Up",
		"bar muscle ups":  "Bar Muscle-Up",
		"bmu":             "Bar Muscle-Up",
		"ring muscle ups": "Muscle-Up",
		"rmu":             "Muscle-Up",
		"remo":            "Row",
		"rowing":          "Row",
		"carrera":         "Run",
		"running":         "Run",
		"correr":          "Run",
		"bike":            "Assault Bike",
		"echo bike":       "Assault Bike",
		"ski":             "Ski Erg",
		"skierg":          "Ski Erg",
		"lunges":          "Walking Lunge",
		"zancadas":        "Walking Lunge",
		"sit ups":         "Sit-Up",
		"abdominales":     "Sit-Up",
		"ghd sit ups":     "GHD Sit-Up",
		"plancha":         "Plank",
	}

	keywords := []KeywordRule{
		{Keyword: "chest to bar", Target: "Chest-to-Bar Pull-Up"},
		{Keyword: "toes", Target: "Toes-to-Bar"},
		{Keyword: "deadlift", Target: "Deadlift"},
		{Keyword: "jerk", Target: "Push Jerk"},
		{Keyword: "thruster", Target: "Thruster"},
		{Keyword: "clean", Target: "Power Clean"},
		{Keyword: "snatch", Target: "Power Snatch"},
		{Keyword: "pull", Target: "Pull-Up"},
		{Keyword: "domin", Target: "Pull-Up"},
		{Keyword: "push", Target: "Push-Up"},
		{Keyword: "wall ball", Target: "Wall Ball"},
		{Keyword: "burpee", Target: "Burpee"},
		{Keyword: "box", Target: "Box Jump"},
		{Keyword: "double", Target: "Double Under"},
		{Keyword: "swing", Target: "Kettlebell Swing"},
		{Keyword: "squat", Target: "Air Squat"},
		{Keyword: "sentadilla", Target: "Air Squat"},
		{Keyword: "lunge", Target: "Walking Lunge"},
		{Keyword: "muscle", Target: "Muscle-Up"},
		{Keyword: "row", Target: "Row"},
		{Keyword: "run", Target: "Run"},
		{Keyword: "bike", Target: "Assault Bike"},
		{Keyword: "ski", Target: "Ski Erg"},
		{Keyword: "plank", Target: "Plank"},
	}

	return Aliases{Names: names, Keywords: keywords}
}

// LoadAliases reads alias tables from a YAML file:
//
//	names:
//	  dominadas: Pull-Up
//	keywords:
//	  - keyword: squat
//	    target: Air Squat
//
// An empty path returns DefaultAliases.
func LoadAliases(path string) (Aliases, error) {
	if path == "" {
		return DefaultAliases(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Aliases{}, fmt.Errorf("reading aliases file: %w", err)
	}

	var a Aliases
	if err := yaml.Unmarshal(data, &a); err != nil {
		return Aliases{}, fmt.Errorf("parsing aliases file: %w", err)
	}
	for i, k := range a.Keywords {
		if k.Keyword == "" || k.Target == "" {
			return Aliases{}, fmt.Errorf("aliases file: keyword rule %d needs both keyword and target", i)
		}
	}
	if a.Names == nil {
		a.Names = map[string]string{}
	}
	return a, nil
}
