package http

import (
	"github.com/mridang-api/internal/application/verification"
	jwtinfra "github.com/mridang-api/internal/infrastructure/jwt"
)

// Deps holds the infrastructure the router wires into services.
type Deps struct {
	Store verification.Store
	Email verification.Delivery
	SMS   verification.Delivery
	// Tokens is optional. Without it verifications carry no token and /checkout is not mounted.
	Tokens *jwtinfra.Provider
}
