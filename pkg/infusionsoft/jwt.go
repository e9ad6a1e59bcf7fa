package infusionsoft

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// jwtExpiry returns the exp claim of a JWT access token. The signature is
// not verified; the claim is only used to schedule refreshes.
func jwtExpiry(tokenString string) (time.Time, bool) {
	if tokenString == "" {
		return time.Time{}, false
	}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}

	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time, true
}
