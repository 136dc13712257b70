package chatclient

import "math/rand"

// Names is the pool of display names handed to anonymous participants.
var Names = []string{
	"Alice", "Bob", "Charlie", "David", "Eve", "Frank", "Grace", "Heidi",
	"Ivan", "Judy", "Kevin", "Linda", "Mallory", "Nancy", "Oscar", "Peggy",
	"Quentin", "Randy", "Steve", "Trent", "Ursula", "Victor", "Walter",
	"Xavier", "Yvonne", "Zoe",
}

// RandomName picks a display name from Names.
func RandomName() string {
	return Names[rand.Intn(len(Names))]
}
