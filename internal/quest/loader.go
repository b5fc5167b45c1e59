package quest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stonelantern/questhall/internal/logger"
)

// ObjectiveDefinition is the YAML authoring shape of an objective
type ObjectiveDefinition struct {
	ID         string `yaml:"id"`
	Kind       string `yaml:"kind"` // kill_count, item_collect, location, manual
	Target     string `yaml:"target"`
	TargetName string `yaml:"target_name"`
	Required   int    `yaml:"required"`
	Scene      string `yaml:"scene"`
	Region     string `yaml:"region"`
	Handout    string `yaml:"handout"`
}

// QuestDefinition is the YAML authoring shape of a quest
type QuestDefinition struct {
	Name              string                `yaml:"name"`
	Description       string                `yaml:"description"`
	Category          string                `yaml:"category"` // main, side, gm
	Hidden            bool                  `yaml:"hidden"`
	Giver             Giver                 `yaml:"giver"`
	Objectives        []ObjectiveDefinition `yaml:"objectives"`
	Rewards           RewardSet             `yaml:"rewards"`
	Branches          []Branch              `yaml:"branches"`
	Prereqs           []string              `yaml:"prereqs"`
	MutuallyExclusive []string              `yaml:"mutually_exclusive"`
	ConflictsWith     []string              `yaml:"conflicts_with"`
	Repeatable        RepeatableConfig      `yaml:"repeatable"`
	Abandon           AbandonConfig         `yaml:"abandon"`
}

// CatalogConfig represents a quests YAML file
type CatalogConfig struct {
	Quests map[string]QuestDefinition `yaml:"quests"`
}

// LoadCatalogFromYAML loads quest definitions from a single YAML file
func LoadCatalogFromYAML(filename string) (*CatalogConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read quests file: %w", err)
	}

	var config CatalogConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse quests YAML: %w", err)
	}

	return &config, nil
}

// Merge combines another CatalogConfig into this one
func (config *CatalogConfig) Merge(other *CatalogConfig) {
	if other == nil {
		return
	}
	if config.Quests == nil {
		config.Quests = make(map[string]QuestDefinition)
	}
	for id, def := range other.Quests {
		config.Quests[id] = def
	}
}

// LoadCatalogFromDirectory loads and merges all YAML files in a directory
func LoadCatalogFromDirectory(dir string) (*CatalogConfig, error) {
	merged := &CatalogConfig{Quests: make(map[string]QuestDefinition)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	fileCount := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		filePath := filepath.Join(dir, name)
		config, err := LoadCatalogFromYAML(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", filePath, err)
		}
		merged.Merge(config)
		fileCount++
		logger.Info("Loaded quest file", "path", filePath, "quests", len(config.Quests))
	}

	logger.Info("Loaded quests from directory", "dir", dir, "files", fileCount, "total_quests", len(merged.Quests))
	return merged, nil
}

// BuildQuests converts every definition into a domain Quest. Validation
// is soft: warnings are logged, nothing is rejected.
func (config *CatalogConfig) BuildQuests() []*Quest {
	quests := make([]*Quest, 0, len(config.Quests))
	for id, def := range config.Quests {
		q := buildQuestFromDefinition(id, &def)
		for _, warning := range ValidateQuest(q) {
			logger.Warning("Quest definition warning", "quest", id, "warning", warning)
		}
		quests = append(quests, q)
	}
	return quests
}

// buildQuestFromDefinition converts a YAML definition to a Quest
func buildQuestFromDefinition(id string, def *QuestDefinition) *Quest {
	objectives := make([]Objective, len(def.Objectives))
	for i, objDef := range def.Objectives {
		objID := objDef.ID
		if objID == "" {
			objID = fmt.Sprintf("%s#%d", id, i)
		}
		objectives[i] = Objective{
			ID:         objID,
			Kind:       parseObjectiveKind(objDef.Kind),
			Target:     objDef.Target,
			TargetName: objDef.TargetName,
			Required:   objDef.Required,
			SceneID:    objDef.Scene,
			RegionID:   objDef.Region,
			HandoutID:  objDef.Handout,
		}
	}

	giver := def.Giver
	if giver.TurnInActorID == "" {
		giver.TurnInActorID = giver.ActorID
	}
	if giver.DeathPolicy == "" {
		giver.DeathPolicy = GiverDeathContinue
	}

	repeatable := def.Repeatable
	if repeatable.Kind == "" {
		repeatable.Kind = RepeatNone
	}

	rewards := def.Rewards
	if rewards.Distribution == "" {
		rewards.Distribution = DistributeSplit
	}

	return &Quest{
		ID:                id,
		Name:              def.Name,
		Description:       def.Description,
		Category:          parseCategory(def.Category),
		Hidden:            def.Hidden,
		Giver:             giver,
		Status:            StatusAvailable,
		Objectives:        objectives,
		Rewards:           rewards,
		Branches:          def.Branches,
		Prereqs:           def.Prereqs,
		MutuallyExclusive: def.MutuallyExclusive,
		ConflictsWith:     def.ConflictsWith,
		Repeatable:        repeatable,
		Abandon:           def.Abandon,
	}
}

// parseObjectiveKind converts a string to an ObjectiveKind
func parseObjectiveKind(s string) ObjectiveKind {
	switch s {
	case "kill_count", "kill":
		return KindKillCount
	case "item_collect", "item", "fetch":
		return KindItemCollect
	case "location", "explore":
		return KindLocation
	case "manual":
		return KindManual
	default:
		return KindManual // Safest fallback: requires explicit GM action
	}
}

// parseCategory converts a string to a Category
func parseCategory(s string) Category {
	switch s {
	case "main":
		return CategoryMain
	case "gm":
		return CategoryGM
	default:
		return CategorySide
	}
}

// ValidateQuest returns soft validation warnings for a quest definition.
// A warned quest still loads; the table can fix it live.
func ValidateQuest(q *Quest) []string {
	var warnings []string
	if q.Name == "" {
		warnings = append(warnings, "missing name")
	}
	if q.Giver.ActorID == "" {
		warnings = append(warnings, "missing giver actor")
	}
	if len(q.Objectives) == 0 {
		warnings = append(warnings, "no objectives")
	}
	for i := range q.Objectives {
		obj := &q.Objectives[i]
		switch obj.Kind {
		case KindKillCount, KindItemCollect:
			if obj.Required <= 0 {
				warnings = append(warnings, fmt.Sprintf("objective %s requires a positive count", obj.ID))
			}
			if obj.Kind == KindItemCollect && obj.Target == "" {
				warnings = append(warnings, fmt.Sprintf("objective %s has no item target", obj.ID))
			}
		case KindLocation:
			if obj.SceneID == "" {
				warnings = append(warnings, fmt.Sprintf("objective %s has no scene", obj.ID))
			}
		}
	}
	if q.Repeatable.Enabled && q.Repeatable.Kind == RepeatCooldown && q.Repeatable.CooldownDays <= 0 {
		warnings = append(warnings, "cooldown repeatable without cooldown_days")
	}
	return warnings
}
