package models

// EnemyActor is the restricted projection of a visible enemy unit or
// building. Exact HP, activity, idle flag, production queues, rally points,
// and primary flags do not exist on this type.
type EnemyActor struct {
	ID            int    `json:"id"`
	Type          string `json:"type"`
	Position      Cell   `json:"position"`
	HealthPercent int    `json:"health_percent"`
}

// FrozenActor is a remembered enemy actor: the last state observed before
// it slipped out of visibility.
type FrozenActor struct {
	ID           int    `json:"id"`
	Type         string `json:"type"`
	LastPosition Cell   `json:"last_position"`
	LastSeenTick int64  `json:"last_seen_tick"`
}

// OwnPlayer is the agent's own economy line in a filtered view.
type OwnPlayer struct {
	Credits        int `json:"credits"`
	PowerGenerated int `json:"power_generated"`
	PowerConsumed  int `json:"power_consumed"`
}

// FilteredView is the fog-limited world as one agent is allowed to see it.
// Own entities carry full detail; enemies appear only through EnemyActor
// and FrozenActor projections.
type FilteredView struct {
	Tick     int64   `json:"tick"`
	GameTime string  `json:"game_time"`
	AgentID  string  `json:"agent_id"`
	Map      MapInfo `json:"map"`

	Player       OwnPlayer  `json:"player"`
	OwnUnits     []Unit     `json:"own_units,omitempty"`
	OwnBuildings []Building `json:"own_buildings,omitempty"`

	EnemyUnits     []EnemyActor  `json:"enemy_units,omitempty"`
	EnemyBuildings []EnemyActor  `json:"enemy_buildings,omitempty"`
	FrozenActors   []FrozenActor `json:"frozen_actors,omitempty"`

	OreFields          []OreField `json:"ore_fields,omitempty"`
	ExplorationPercent float64    `json:"exploration_percent"`
}

// OwnsUnit reports whether the view contains an own unit with the id.
func (v *FilteredView) OwnsUnit(id int) bool {
	for i := range v.OwnUnits {
		if v.OwnUnits[i].ID == id {
			return true
		}
	}
	return false
}

// OwnsBuilding reports whether the view contains an own building with the id.
func (v *FilteredView) OwnsBuilding(id int) bool {
	for i := range v.OwnBuildings {
		if v.OwnBuildings[i].ID == id {
			return true
		}
	}
	return false
}
