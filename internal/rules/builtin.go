package rules

import "github.com/straja-ai/wsd/internal/sense"

// Overtime: sense 1 is extra working time, sense 2 is extra game time.
func Overtime() CueRule {
	return CueRule{
		Target: sense.Overtime,
		Sense1: []string{
			"work", "working", "hours", "shift", "shifts", "overtime shift",
			"pay", "paid", "unpaid", "wage", "wages", "salary", "rate",
			"employer", "employee", "staff", "union", "office", "job",
			"manager", "management", "boss", "supervisor",
			"compensation", "time bank", "holiday", "time-and-a-half",
			"double time", "overtime work", "timesheet", "schedule",
		},
		Sense2: []string{
			"game", "match", "team", "quarter", "period", "regulation",
			"shootout", "goal", "goals", "score", "scored", "scoring",
			"basketball", "football", "soccer", "hockey", "baseball",
			"playoffs", "postseason", "tournament", "finals",
			"win", "loss", "losing", "victory", "defeat",
			"ot", "pk", "penalty", "sudden death",
			"field", "court", "arena", "stadium",
			"coach", "head coach", "referee", "official",
		},
	}
}

// Director: sense 1 leads an organization, sense 2 directs a film or play.
// Any film cue decides 2; everything else is 1.
func Director() OverrideRule {
	return OverrideRule{
		Target: sense.Director,
		Cues: []string{
			"film", "movie", "cinema", "theatre", "theater", "play",
			"tv", "television", "documentary", "producer", "cast",
			"actor", "actress", "shot", "scene", "script", "screenplay",
			"hollywood", "oscar", "festival", "nominated",
			"choreography", "special effects",
		},
		OnMatch: sense.Two,
		Default: sense.One,
	}
}

// Rubbish: sense 1 is physical waste, sense 2 is nonsense or poor quality.
func Rubbish() CueRule {
	return CueRule{
		Target: sense.Rubbish,
		Sense1: []string{
			"bin", "bins", "garbage", "trash", "waste", "litter",
			"landfill", "dump", "dumpster", "tip", "collection",
			"bag", "bags", "black bag", "refuse", "debris",
			"recycling", "rubbish truck", "garbage truck",
			"doorstep", "street", "pavement", "alley", "kerb", "curb",
		},
		Sense2: []string{
			"nonsense", "nonsensical", "ridiculous", "absurd",
			"idea", "argument", "theory", "policy", "proposal",
			"opinion", "excuse", "claim", "statement",
			"review", "critique", "analysis",
			"complete rubbish", "total rubbish",
			"absolute rubbish", "utter rubbish",
			"load of rubbish", "pile of rubbish",
		},
	}
}

// Builtin returns the rules for every word shipped with the service.
func Builtin() []Rule {
	return []Rule{Director(), Overtime(), Rubbish()}
}
