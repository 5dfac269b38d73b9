package matchmaker

import (
	"hash/fnv"

	"github.com/jediswimmer/ironcurtain/pkg/models"
)

// ResolveFactions assigns concrete factions to a pair from their preferences.
// intN draws a uniform integer in [0, n); it supplies the randomness for the
// both-random case, so rematches of the same pair can land on fresh sides,
// mirror matches included.
//
// Rules:
//   - both random: each side drawn independently and uniformly
//   - exactly one random: it receives the complement of the other side
//   - both prefer the same faction: the second entry is re-rolled,
//     deterministically for a given ordered pair of agent ids
//   - otherwise: both keep their preference
func ResolveFactions(aID string, aPref models.Faction, bID string, bPref models.Faction, intN func(n int) int) (models.Faction, models.Faction) {
	switch {
	case !aPref.IsConcrete() && !bPref.IsConcrete():
		return factionFromBit(uint64(intN(2))), factionFromBit(uint64(intN(2)))
	case !aPref.IsConcrete():
		return bPref.Opposite(), bPref
	case !bPref.IsConcrete():
		return aPref, aPref.Opposite()
	case aPref == bPref:
		// Tie-break: re-roll the second side from the pairing hash so a
		// repeated pairing pass can never flip it.
		return aPref, factionFromBit(pairingHash(aID, bID) & 1)
	default:
		return aPref, bPref
	}
}

// pairingHash keys the deterministic tie-break on pairing identity.
func pairingHash(aID, bID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(aID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(bID))
	return h.Sum64()
}

func factionFromBit(bit uint64) models.Faction {
	if bit == 0 {
		return models.FactionAllies
	}
	return models.FactionSoviet
}

// jointlyResolvable reports whether two preferences resolve without a
// re-roll: an exact complementary match, or at least one side random.
func jointlyResolvable(a, b models.Faction) bool {
	if !a.IsConcrete() || !b.IsConcrete() {
		return true
	}
	return a != b
}
