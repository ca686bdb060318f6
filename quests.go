package main

import "errors"

var (
	errInvalidPlayerCount = errors.New("games require between 5 and 10 players")
	errInvalidQuestIndex  = errors.New("quest index must be between 0 and 4")
)

// questSizes maps player count to the required team size for each of the
// five quests.
var questSizes = map[int][5]int{
	5:  {2, 3, 2, 3, 3},
	6:  {2, 3, 4, 3, 4},
	7:  {2, 3, 3, 4, 4},
	8:  {3, 4, 4, 5, 5},
	9:  {3, 4, 4, 5, 5},
	10: {3, 4, 4, 5, 5},
}

// questTeamSize returns the number of players the leader must send on the
// given quest (0-based index).
func questTeamSize(playerCount, quest int) (int, error) {
	sizes, ok := questSizes[playerCount]
	if !ok {
		return 0, errInvalidPlayerCount
	}
	if quest < 0 || quest >= len(sizes) {
		return 0, errInvalidQuestIndex
	}

	return sizes[quest], nil
}

// questNeedsTwoFails reports whether the given quest only fails with two or
// more fail votes. This applies to the fourth quest in games of seven or
// more players.
func questNeedsTwoFails(playerCount, quest int) bool {
	return quest == 3 && playerCount >= 7
}
