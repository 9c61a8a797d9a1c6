package rankings

import "github.com/steamgems/backend/internal/storage/models"

// Fixed candidate catalog: hidden/underrated indie titles (2021-2025).
var defaultCandidates = []models.CandidateGame{
	{AppID: 1408720, Title: "Dome Keeper", Tags: []string{"Roguelike", "Mining", "Indie"}},
	{AppID: 1679690, Title: "Cobalt Core", Tags: []string{"Deckbuilding", "Roguelike", "Indie"}},
	{AppID: 1324680, Title: "Cassette Beasts", Tags: []string{"RPG", "Creature Collector", "Indie"}},
	{AppID: 1785150, Title: "ANIMAL WELL", Tags: []string{"Metroidvania", "Puzzle", "Indie"}},
	{AppID: 2566630, Title: "Pepper Grinder", Tags: []string{"Action", "Platformer", "Indie"}},
	{AppID: 2379780, Title: "Balatro", Tags: []string{"Card Game", "Roguelike", "Indie"}},
	{AppID: 1455840, Title: "Dorfromantik", Tags: []string{"Puzzle", "Relaxing", "Strategy"}},
	{AppID: 1578650, Title: "Before Your Eyes", Tags: []string{"Narrative", "Emotional", "Indie"}},
}

// DefaultCandidates returns a copy of the catalog so callers cannot mutate
// the shared list.
func DefaultCandidates() []models.CandidateGame {
	out := make([]models.CandidateGame, len(defaultCandidates))
	copy(out, defaultCandidates)
	return out
}
