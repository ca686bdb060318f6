package main

import "math/rand/v2"

// Role names follow the standard Avalon deck. Each role belongs to exactly
// one camp; the camp is public once a game starts, the role itself is not.
const (
	roleMerlin   = "Merlin"
	rolePercival = "Percival"
	roleServant  = "Loyal Servant"
	roleAssassin = "Assassin"
	roleMorgana  = "Morgana"
	roleMordred  = "Mordred"
	roleOberon   = "Oberon"
)

const (
	campGood = "good"
	campEvil = "evil"
)

var roleCamps = map[string]string{
	roleMerlin:   campGood,
	rolePercival: campGood,
	roleServant:  campGood,
	roleAssassin: campEvil,
	roleMorgana:  campEvil,
	roleMordred:  campEvil,
	roleOberon:   campEvil,
}

// roleDecks holds the fixed role composition for each supported player
// count. The good/evil split matches the official rule table.
var roleDecks = map[int][]string{
	5:  {roleMerlin, rolePercival, roleServant, roleAssassin, roleMorgana},
	6:  {roleMerlin, rolePercival, roleServant, roleServant, roleAssassin, roleMorgana},
	7:  {roleMerlin, rolePercival, roleServant, roleServant, roleAssassin, roleMorgana, roleOberon},
	8:  {roleMerlin, rolePercival, roleServant, roleServant, roleServant, roleAssassin, roleMorgana, roleMordred},
	9:  {roleMerlin, rolePercival, roleServant, roleServant, roleServant, roleServant, roleAssassin, roleMorgana, roleMordred},
	10: {roleMerlin, rolePercival, roleServant, roleServant, roleServant, roleServant, roleAssassin, roleMorgana, roleMordred, roleOberon},
}

// assignRoles returns a shuffled role assignment for the given player
// count, indexed by player number minus one. The random source is passed
// in so tests can fix the ordering.
func assignRoles(playerCount int, rng *rand.Rand) ([]string, error) {
	deck, ok := roleDecks[playerCount]
	if !ok {
		return nil, errInvalidPlayerCount
	}

	roles := make([]string, len(deck))
	copy(roles, deck)
	rng.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})

	return roles, nil
}

// sightEntry is one player another role is entitled to see, with the label
// that role is shown. The label may be obfuscated (Percival cannot tell
// Merlin from Morgana).
type sightEntry struct {
	seat  int // 1-based player number
	label string
}

// roleSight computes what the player in the given seat (0-based) is shown
// about other players, derived purely from the assignment so it can be
// recomputed at any time:
//
//   - Merlin sees all evil players except Mordred, with their roles.
//   - Percival sees Merlin and Morgana under a shared label.
//   - Evil players see each other, except that Oberon neither sees nor
//     is seen.
//   - Loyal Servants see nothing beyond their own role.
func roleSight(roles []string, seat int) []sightEntry {
	var sight []sightEntry

	switch role := roles[seat]; {
	case role == roleMerlin:
		for i, r := range roles {
			if roleCamps[r] == campEvil && r != roleMordred {
				sight = append(sight, sightEntry{seat: i + 1, label: r})
			}
		}
	case role == rolePercival:
		for i, r := range roles {
			if r == roleMerlin || r == roleMorgana {
				sight = append(sight, sightEntry{seat: i + 1, label: "Merlin or Morgana"})
			}
		}
	case roleCamps[role] == campEvil && role != roleOberon:
		for i, r := range roles {
			if i == seat {
				continue
			}
			if roleCamps[r] == campEvil && r != roleOberon {
				sight = append(sight, sightEntry{seat: i + 1, label: r})
			}
		}
	}

	return sight
}
