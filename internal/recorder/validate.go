package recorder

import (
	"strings"

	"github.com/mauv0809/padel-elo/internal/club"
)

// validate checks a submission without touching the store and returns its
// sets with indices assigned.
func validate(req Request) ([]club.Set, error) {
	if strings.TrimSpace(req.CreatedBy) == "" {
		return nil, invalid("createdById is required")
	}
	if len(req.Sets) == 0 {
		return nil, invalid("at least one set is required")
	}

	first := req.Sets[0]
	lineup := [4]string{first.TeamAPlayer1ID, first.TeamAPlayer2ID, first.TeamBPlayer1ID, first.TeamBPlayer2ID}
	for _, id := range lineup {
		if strings.TrimSpace(id) == "" {
			return nil, invalid("all four player ids are required")
		}
	}
	seen := make(map[string]bool, len(lineup))
	for _, id := range lineup {
		if seen[id] {
			return nil, invalid("a match needs four distinct players, %q appears twice", id)
		}
		seen[id] = true
	}

	withIndex := 0
	for _, s := range req.Sets {
		if s.SetIndex != nil {
			withIndex++
		}
	}
	if withIndex != 0 && withIndex != len(req.Sets) {
		return nil, invalid("setIndex must be given for every set or for none")
	}

	sets := make([]club.Set, len(req.Sets))
	indices := make(map[int]bool, len(req.Sets))
	for i, s := range req.Sets {
		if [4]string{s.TeamAPlayer1ID, s.TeamAPlayer2ID, s.TeamBPlayer1ID, s.TeamBPlayer2ID} != lineup {
			return nil, invalid("set %d has different players than set 1", i+1)
		}
		if s.ScoreA < 0 || s.ScoreB < 0 {
			return nil, invalid("set %d has a negative score", i+1)
		}

		index := i + 1
		if s.SetIndex != nil {
			index = *s.SetIndex
			if index < 1 {
				return nil, invalid("set %d has an invalid setIndex %d", i+1, index)
			}
			if indices[index] {
				return nil, invalid("setIndex %d is used more than once", index)
			}
		}
		indices[index] = true

		sets[i] = club.Set{
			Index:          index,
			TeamAPlayer1ID: s.TeamAPlayer1ID,
			TeamAPlayer2ID: s.TeamAPlayer2ID,
			TeamBPlayer1ID: s.TeamBPlayer1ID,
			TeamBPlayer2ID: s.TeamBPlayer2ID,
			ScoreA:         s.ScoreA,
			ScoreB:         s.ScoreB,
		}
	}
	return sets, nil
}
