package accounts

import (
	"fmt"
	"math/rand/v2"
)

var nicknameAdjectives = []string{
	"clever", "witty", "brave", "calm", "eager",
	"gentle", "happy", "jolly", "keen", "lively",
	"merry", "noble", "proud", "quick", "sunny",
}

var nicknameAnimals = []string{
	"panda", "otter", "falcon", "lynx", "badger",
	"heron", "marmot", "puffin", "tapir", "wombat",
}

// GenerateNickname draws a random display name in the form
// adjective_animal_number. Uniqueness is not guaranteed here; callers
// redraw until the name does not collide with a persisted account.
func GenerateNickname() string {
	adjective := nicknameAdjectives[rand.IntN(len(nicknameAdjectives))]
	animal := nicknameAnimals[rand.IntN(len(nicknameAnimals))]
	return fmt.Sprintf("%s_%s_%d", adjective, animal, rand.IntN(1000))
}
