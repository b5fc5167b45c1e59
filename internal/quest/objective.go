package quest

import "strings"

// ObjectiveKind is a closed set; each kind carries only the fields it needs
type ObjectiveKind string

const (
	KindKillCount   ObjectiveKind = "kill_count"   // Defeat a number of matching enemies
	KindItemCollect ObjectiveKind = "item_collect" // Hold a number of a given item
	KindLocation    ObjectiveKind = "location"     // Enter a scene (optionally a region)
	KindManual      ObjectiveKind = "manual"       // Completed by explicit GM action
)

// Objective is a single trackable sub-goal of a quest.
//
// Identity, Kind and the target parameters are fixed at creation; only
// Current and Completed are mutable.
type Objective struct {
	ID   string        `json:"id"`
	Kind ObjectiveKind `json:"kind"`

	// KillCount and ItemCollect
	Target     string `json:"target,omitempty"`      // Mob or item identifier (empty kill target = any)
	TargetName string `json:"target_name,omitempty"` // Display name for the target
	Required   int    `json:"required,omitempty"`

	// Location
	SceneID  string `json:"scene_id,omitempty"`
	RegionID string `json:"region_id,omitempty"` // Empty = whole scene

	// Revealed through the handout collaborator when this objective completes
	HandoutID string `json:"handout_id,omitempty"`

	Current   int  `json:"current"`
	Completed bool `json:"completed"`
}

// matchesKill applies the kill-target fallback chain: exact identifier,
// exact name, then case-insensitive substring of the target within the
// killed entity's name. The substring step is loose and can over-match
// when targets share a name fragment.
func (o *Objective) matchesKill(mobID, mobName string) bool {
	if o.Target == "" {
		return true // Any kill counts
	}
	if o.Target == mobID {
		return true
	}
	if strings.EqualFold(o.Target, mobName) {
		return true
	}
	return strings.Contains(strings.ToLower(mobName), strings.ToLower(o.Target))
}

// matchesLocation checks scene and optional region
func (o *Objective) matchesLocation(sceneID, regionID string) bool {
	if o.SceneID != sceneID {
		return false
	}
	return o.RegionID == "" || o.RegionID == regionID
}
