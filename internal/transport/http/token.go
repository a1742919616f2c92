package http

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"polyomino-api/internal/core"
)

// SessionClaims binds a puzzle id and the generator's per-color shape
// multiset to a signed token: a host UI calls generate once, gets back a
// token, and later sends it with an exact-count solve request so the
// server can check that the request's shape_counts match the generated
// puzzle's multiset. The solve request still carries the full grid and
// requirements.
type SessionClaims struct {
	PuzzleID    string `json:"puzzle_id"`
	ShapeDigest string `json:"shape_digest"`
	jwt.RegisteredClaims
}

// shapeDigest hashes a per-color shape-id -> count multiset into a stable
// hex digest, independent of map iteration order.
func shapeDigest(shapeCounts map[core.Color]map[string]int) string {
	colors := make([]string, 0, len(shapeCounts))
	for color := range shapeCounts {
		colors = append(colors, string(color))
	}
	sort.Strings(colors)

	h := sha256.New()
	for _, color := range colors {
		counts := shapeCounts[core.Color(color)]
		shapeIDs := make([]string, 0, len(counts))
		for id := range counts {
			shapeIDs = append(shapeIDs, id)
		}
		sort.Strings(shapeIDs)

		for _, id := range shapeIDs {
			fmt.Fprintf(h, "%s:%s:%d;", color, id, counts[id])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// createSessionToken signs a SessionClaims token with secret, expiring after ttl.
func createSessionToken(secret, puzzleID string, shapeCounts map[core.Color]map[string]int, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		PuzzleID:    puzzleID,
		ShapeDigest: shapeDigest(shapeCounts),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// verifySessionToken parses and validates a session token, returning its claims.
func verifySessionToken(secret, tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// shapeCountsMatch reports whether shapeCounts hashes to the digest bound in claims.
func shapeCountsMatch(claims *SessionClaims, shapeCounts map[core.Color]map[string]int) bool {
	return claims.ShapeDigest == shapeDigest(shapeCounts)
}
