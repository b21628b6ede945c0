// Package elo computes doubles Elo rating updates from set scores.
//
// Each team is rated as the mean of its two players. The team-level change
// is applied in full to both teammates, so partners always move together.
package elo

import "math"

const (
	// K is the maximum rating change a team can receive from a single match.
	K = 32
	// DefaultRating is assigned to a player the first time they are rated.
	DefaultRating = 1000
	// Scale is the rating gap at which the stronger team is expected to
	// score ten times as often as the weaker one.
	Scale = 400
)

// SetScore is the games won by team A and team B in one set.
type SetScore struct {
	A int `json:"scoreA"`
	B int `json:"scoreB"`
}

// Ratings holds the four players' ratings in team order.
type Ratings struct {
	A1, A2 int
	B1, B2 int
}

// Result is the outcome of a rating update. New ratings and deltas are rounded.
type Result struct {
	NewA1, NewA2, NewB1, NewB2         int
	DeltaA1, DeltaA2, DeltaB1, DeltaB2 int
}

// ExpectedScore is the logistic expectation for a team rated ra against a team rated rb.
func ExpectedScore(ra, rb float64) float64 {
	return 1 / (1 + math.Pow(10, (rb-ra)/Scale))
}

// SetsWon counts the sets each team won. A drawn set counts for neither team.
func SetsWon(sets []SetScore) (a, b int) {
	for _, s := range sets {
		switch {
		case s.A > s.B:
			a++
		case s.B > s.A:
			b++
		}
	}
	return a, b
}

// MatchScore is team A's actual score: 1 for more sets won, 0 for fewer, 0.5 when level.
func MatchScore(sets []SetScore) float64 {
	a, b := SetsWon(sets)
	switch {
	case a > b:
		return 1
	case a < b:
		return 0
	default:
		return 0.5
	}
}

// TeamDeltas returns the unrounded rating change for team A and team B.
func TeamDeltas(current Ratings, sets []SetScore) (deltaA, deltaB float64) {
	teamA := float64(current.A1+current.A2) / 2
	teamB := float64(current.B1+current.B2) / 2

	sa := MatchScore(sets)
	sb := 1 - sa
	ea := ExpectedScore(teamA, teamB)
	eb := 1 - ea

	return K * (sa - ea), K * (sb - eb)
}

// Calculate applies one match to the four players' ratings.
// It performs no validation of the scores.
func Calculate(current Ratings, sets []SetScore) Result {
	deltaA, deltaB := TeamDeltas(current, sets)
	da, db := round(deltaA), round(deltaB)

	// New ratings are built from the rounded deltas so that
	// rating before + delta == rating after holds for every history row.
	return Result{
		NewA1:   current.A1 + da,
		NewA2:   current.A2 + da,
		NewB1:   current.B1 + db,
		NewB2:   current.B2 + db,
		DeltaA1: da,
		DeltaA2: da,
		DeltaB1: db,
		DeltaB2: db,
	}
}

// round rounds half away from zero, so a result mirrored between teams is mirrored exactly.
func round(x float64) int {
	return int(math.Round(x))
}
