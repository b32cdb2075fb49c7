package words

import (
	"crypto/rand"
	"math/big"
)

// Word lists for procedurally generated display names. A player who
// joins with a blank or whitespace-only name is given an
// "Adjective Noun" pair so every broadcast carries a renderable name.

var adjectives = []string{
	"Ancient", "Arcane", "Bold", "Brisk", "Clever", "Crimson", "Daring",
	"Dusky", "Eager", "Emerald", "Fierce", "Gilded", "Hidden", "Ivory",
	"Jolly", "Keen", "Lucky", "Mellow", "Nimble", "Obsidian", "Patient",
	"Quiet", "Radiant", "Sly", "Stalwart", "Swift", "Umbral", "Vivid",
	"Wandering", "Zealous",
}

var nouns = []string{
	"Angel", "Basilisk", "Cartographer", "Djinn", "Drake", "Elemental",
	"Falcon", "Golem", "Griffin", "Hydra", "Knight", "Kraken", "Leviathan",
	"Lynx", "Mariner", "Monk", "Oracle", "Phoenix", "Pilgrim", "Raven",
	"Saproling", "Sentinel", "Shaman", "Sphinx", "Squire", "Thopter",
	"Voyager", "Warden", "Wisp", "Wurm",
}

// PlaceholderName returns a random adjective+noun pair.
func PlaceholderName() string {
	return adjectives[randomIndex(len(adjectives))] + " " + nouns[randomIndex(len(nouns))]
}

func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		// crypto/rand failing means the OS entropy source is gone;
		// a fixed index keeps the join path alive regardless.
		return 0
	}
	return int(n.Int64())
}
