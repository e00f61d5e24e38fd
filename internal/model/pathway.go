package model

import "strings"

// PathwayID identifies a diagnostic question track.
type PathwayID string

// Known pathways, in evaluation priority order.
const (
	PathwayADHD       PathwayID = "adhd_pathway"
	PathwayAutism     PathwayID = "autism_pathway"
	PathwayTrauma     PathwayID = "trauma_pathway"
	PathwayMasking    PathwayID = "masking_pathway"
	PathwayGiftedness PathwayID = "giftedness_pathway"
)

// PathwayDef is the static definition of a pathway.
type PathwayDef struct {
	ID          PathwayID
	Label       string
	TriggerTags []string
	Priority    int
	Clinical    bool
}

// Pathways is the lookup table of pathway definitions ordered by priority.
// Clinical pathways come before trait-curiosity pathways.
var Pathways = []PathwayDef{
	{
		ID:          PathwayADHD,
		Label:       "ADHD",
		TriggerTags: []string{"attention", "impulsivity", "hyperactivity", "executive-function"},
		Priority:    1,
		Clinical:    true,
	},
	{
		ID:          PathwayAutism,
		Label:       "Autism",
		TriggerTags: []string{"sensory", "social-communication", "routine", "special-interests"},
		Priority:    2,
		Clinical:    true,
	},
	{
		ID:          PathwayTrauma,
		Label:       "Trauma-informed",
		TriggerTags: []string{"hypervigilance", "avoidance", "emotional-numbing", "intrusion"},
		Priority:    3,
		Clinical:    true,
	},
	{
		ID:          PathwayMasking,
		Label:       "Masking",
		TriggerTags: []string{"camouflaging", "social-exhaustion", "mimicry"},
		Priority:    4,
	},
	{
		ID:          PathwayGiftedness,
		Label:       "Giftedness",
		TriggerTags: []string{"intellectual-intensity", "overexcitability", "rapid-learning"},
		Priority:    5,
	},
}

// LookupPathway returns the definition for id.
func LookupPathway(id PathwayID) (PathwayDef, bool) {
	for _, def := range Pathways {
		if def.ID == id {
			return def, true
		}
	}
	return PathwayDef{}, false
}

// ParsePathway maps loose names ("adhd", "ADHD_pathway") to a PathwayID.
func ParsePathway(name string) (PathwayID, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", false
	}
	if !strings.HasSuffix(key, "_pathway") {
		key += "_pathway"
	}
	if _, ok := LookupPathway(PathwayID(key)); !ok {
		return "", false
	}
	return PathwayID(key), true
}
