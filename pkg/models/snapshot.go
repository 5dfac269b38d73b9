package models

import (
	"fmt"
	"math"
)

// Cell is a map coordinate.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// String formats the cell as "(x,y)".
func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// CellSet is a membership set of cells, built from the wire-form slices
// during snapshot normalization.
type CellSet map[Cell]struct{}

// NewCellSet builds a set from a slice of cells.
func NewCellSet(cells []Cell) CellSet {
	set := make(CellSet, len(cells))
	for _, c := range cells {
		set[c] = struct{}{}
	}
	return set
}

// Contains reports membership.
func (s CellSet) Contains(c Cell) bool {
	_, ok := s[c]
	return ok
}

// MapInfo is the static metadata of the battlefield.
type MapInfo struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// TotalCells returns the map's cell count.
func (m MapInfo) TotalCells() int {
	return m.Width * m.Height
}

// InBounds reports whether a cell lies on the map.
func (m MapInfo) InBounds(c Cell) bool {
	return c.X >= 0 && c.X < m.Width && c.Y >= 0 && c.Y < m.Height
}

// PlayerState is one player's record in an authoritative snapshot. The
// cell sets travel as slices on the wire and are materialized into maps by
// Normalize before any visibility query.
type PlayerState struct {
	Credits        int `json:"credits"`
	PowerGenerated int `json:"power_generated"`
	PowerConsumed  int `json:"power_consumed"`

	VisibleCellList  []Cell `json:"visible_cells"`
	ExploredCellList []Cell `json:"explored_cells"`

	VisibleCells  CellSet `json:"-"`
	ExploredCells CellSet `json:"-"`
}

// Normalize materializes the wire-form cell slices into sets.
func (p *PlayerState) Normalize() {
	p.VisibleCells = NewCellSet(p.VisibleCellList)
	p.ExploredCells = NewCellSet(p.ExploredCellList)
}

// Unit is a mobile actor in an authoritative snapshot.
type Unit struct {
	ID       int    `json:"id"`
	Owner    string `json:"owner"`
	Type     string `json:"type"`
	Position Cell   `json:"position"`
	HP       int    `json:"hp"`
	MaxHP    int    `json:"max_hp"`
	Activity string `json:"activity,omitempty"`
	IsIdle   bool   `json:"is_idle"`
}

// HealthPercent returns the unit's health as a rounded integer percentage.
func (u *Unit) HealthPercent() int {
	return healthPercent(u.HP, u.MaxHP)
}

// Building is a static actor in an authoritative snapshot.
type Building struct {
	ID              int      `json:"id"`
	Owner           string   `json:"owner"`
	Type            string   `json:"type"`
	Position        Cell     `json:"position"`
	HP              int      `json:"hp"`
	MaxHP           int      `json:"max_hp"`
	ProductionQueue []string `json:"production_queue,omitempty"`
	RallyPoint      *Cell    `json:"rally_point,omitempty"`
	IsPrimary       bool     `json:"is_primary,omitempty"`
}

// HealthPercent returns the building's health as a rounded integer percentage.
func (b *Building) HealthPercent() int {
	return healthPercent(b.HP, b.MaxHP)
}

// OreField is a harvestable resource patch.
type OreField struct {
	ID         int  `json:"id"`
	Center     Cell `json:"center"`
	TotalValue int  `json:"total_value"`
}

// StateSnapshot is the simulator's authoritative per-tick state. Immutable
// once normalized; the fog enforcer only reads it.
type StateSnapshot struct {
	Tick      int64                   `json:"tick"`
	GameTime  string                  `json:"game_time"`
	Map       MapInfo                 `json:"map"`
	Players   map[string]*PlayerState `json:"players"`
	Units     []Unit                  `json:"units"`
	Buildings []Building              `json:"buildings,omitempty"`
	OreFields []OreField              `json:"ore_fields,omitempty"`
}

// Normalize materializes every player's cell sets. Must be called once
// after decoding, before visibility queries.
func (s *StateSnapshot) Normalize() {
	for _, p := range s.Players {
		p.Normalize()
	}
}

func healthPercent(hp, maxHP int) int {
	if maxHP <= 0 {
		return 0
	}
	return int(math.Round(float64(hp) / float64(maxHP) * 100))
}
