package facade

import "math/rand/v2"

// randomIndex picks a uniform index in [0, n). n must be positive.
func randomIndex(n int) int {
	return rand.IntN(n)
}
