// Package fog projects authoritative game state into strictly
// visibility-limited per-agent views. The projection is structural: fields an
// agent must not possess (enemy exact HP, production queues, activity, idle
// flags) are absent from the view types, not zeroed.
package fog

import (
	"errors"
	"fmt"

	"github.com/jediswimmer/ironcurtain/pkg/models"
)

// ErrUnknownAgentInSnapshot indicates the snapshot carries no player record
// for the requested agent. The session manager escalates this to error.
var ErrUnknownAgentInSnapshot = errors.New("unknown agent in snapshot")

// Enforce projects a normalized snapshot into the agent's filtered view and
// updates the agent's frozen-actor store in place. It is a pure function of
// (snapshot, agent, store): replaying the same snapshot yields the same view
// and leaves the store unchanged.
func Enforce(snap *models.StateSnapshot, agentID string, store *FrozenStore) (*models.FilteredView, error) {
	player, ok := snap.Players[agentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgentInSnapshot, agentID)
	}

	view := &models.FilteredView{
		Tick:     snap.Tick,
		GameTime: snap.GameTime,
		AgentID:  agentID,
		Map:      snap.Map,
		Player: models.OwnPlayer{
			Credits:        player.Credits,
			PowerGenerated: player.PowerGenerated,
			PowerConsumed:  player.PowerConsumed,
		},
	}

	// Live enemy ids, visible or not, for the frozen removal rule.
	liveEnemies := make(map[int]struct{})

	for i := range snap.Units {
		u := &snap.Units[i]
		if u.Owner == agentID {
			view.OwnUnits = append(view.OwnUnits, *u)
			continue
		}
		liveEnemies[u.ID] = struct{}{}
		if player.VisibleCells.Contains(u.Position) {
			view.EnemyUnits = append(view.EnemyUnits, models.EnemyActor{
				ID:            u.ID,
				Type:          u.Type,
				Position:      u.Position,
				HealthPercent: u.HealthPercent(),
			})
			store.Observe(u.ID, u.Type, u.Position, snap.Tick)
		}
	}

	for i := range snap.Buildings {
		b := &snap.Buildings[i]
		if b.Owner == agentID {
			view.OwnBuildings = append(view.OwnBuildings, *b)
			continue
		}
		liveEnemies[b.ID] = struct{}{}
		if player.VisibleCells.Contains(b.Position) {
			view.EnemyBuildings = append(view.EnemyBuildings, models.EnemyActor{
				ID:            b.ID,
				Type:          b.Type,
				Position:      b.Position,
				HealthPercent: b.HealthPercent(),
			})
			store.Observe(b.ID, b.Type, b.Position, snap.Tick)
		}
	}

	// Frozen scrub: a record is removed only when its last-known cell is
	// currently visible and no live enemy with that id exists — the agent
	// can legitimately observe that it is gone. An enemy that died in the
	// fog stays remembered until its last position is re-scouted.
	visibleEnemies := make(map[int]struct{}, len(view.EnemyUnits)+len(view.EnemyBuildings))
	for _, a := range view.EnemyUnits {
		visibleEnemies[a.ID] = struct{}{}
	}
	for _, a := range view.EnemyBuildings {
		visibleEnemies[a.ID] = struct{}{}
	}

	for _, record := range store.All() {
		if _, visible := visibleEnemies[record.ID]; visible {
			continue // just refreshed above
		}
		_, alive := liveEnemies[record.ID]
		if player.VisibleCells.Contains(record.LastPosition) && !alive {
			store.Remove(record.ID)
			continue
		}
		view.FrozenActors = append(view.FrozenActors, record)
	}

	// Ore fields are known once their center cell has been explored.
	for _, field := range snap.OreFields {
		if player.ExploredCells.Contains(field.Center) {
			view.OreFields = append(view.OreFields, field)
		}
	}

	if total := snap.Map.TotalCells(); total > 0 {
		view.ExplorationPercent = float64(len(player.ExploredCells)) / float64(total) * 100
	}

	return view, nil
}
