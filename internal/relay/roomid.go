package relay

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Room ids read as adjective-animal-dish-extra, e.g. "sleepy-otter-ramen-comet".
var wordPools = [][]string{
	{
		"tiny", "happy", "sleepy", "fluffy", "sparkly", "cheery", "silly", "jolly", "cozy", "shiny",
		"golden", "silver", "crimson", "emerald", "purple", "bright", "gentle", "brave", "calm", "swift",
		"silent", "noisy", "bouncy", "fuzzy", "plucky", "merry", "peppy",
	},
	{
		"kitten", "puppy", "bunny", "panda", "koala", "fox", "otter", "hedgehog", "squirrel", "hamster",
		"duckling", "fawn", "lamb", "porcupine", "raccoon", "beaver", "seahorse", "dolphin", "narwhal",
		"penguin", "flamingo", "pelican", "sparrow", "robin", "toucan", "parrot", "cockatoo",
	},
	{
		"pancake", "waffle", "sushi", "ramen", "curry", "taco", "burrito", "biryani", "paella", "risotto",
		"lasagna", "pizza", "dumpling", "noodle", "omelette", "quiche", "kebab", "fondue", "pierogi",
		"gnocchi", "falafel", "samosa", "poutine", "dimsum",
	},
	{
		"dragon", "unicorn", "griffin", "phoenix", "gnome", "sprite", "pixie", "lantern", "puddle", "pebble",
		"rocket", "comet", "orbit", "nebula", "canyon", "ridge", "sunbeam", "stardust", "meadow", "willow",
		"ember", "maple", "marble", "breeze", "thimble", "button",
	},
}

// maxRoomIDAttempts bounds the search for an unused id.
const maxRoomIDAttempts = 64

// newRoomID returns a random memorable room id for which taken reports false.
func newRoomID(taken func(string) bool) (string, error) {
	words := make([]string, len(wordPools))
	for attempt := 0; attempt < maxRoomIDAttempts; attempt++ {
		for i, pool := range wordPools {
			idx, err := randomIndex(len(pool))
			if err != nil {
				return "", fmt.Errorf("generate room id: %w", err)
			}
			words[i] = pool[idx]
		}
		id := strings.Join(words, "-")
		if !taken(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("generate room id: no free id after %d attempts", maxRoomIDAttempts)
}

// randomIndex returns a cryptographically secure random index for a slice of length n.
func randomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
