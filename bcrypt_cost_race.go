//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

// race builds slow bcrypt down enough to trip test timeouts
func passwordHashCost() int {
	return bcrypt.DefaultCost
}
