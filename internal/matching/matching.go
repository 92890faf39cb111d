// Package matching holds the pure decision logic of the check-in system:
// mutual-interest matching, venue capacity admission and the per-pair
// message quota. Nothing here performs I/O.
package matching

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/Shivanand-hulikatti/checkedin/internal/model"
)

// NormalizeNickname trims and NFC-normalizes a nickname so that visually
// identical nicknames compare equal.
func NormalizeNickname(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// ComputeMatches returns the candidates that are mutually compatible with self.
//
// A candidate matches when it is not self, its gender is the one self is
// interested in, and it is interested in self's gender. Candidates whose
// gender or interest cannot be parsed are skipped. Input order is kept.
func ComputeMatches(self model.Session, candidates []model.Checkin) []model.Checkin {
	out := make([]model.Checkin, 0, len(candidates))

	gender, err := model.ParseGender(string(self.Gender))
	if err != nil {
		return out
	}
	interest, err := model.ParseInterest(string(self.InterestedIn))
	if err != nil {
		return out
	}

	target := interest.TargetGender()
	required := gender.RequiredInterest()
	me := NormalizeNickname(self.Nickname)

	for _, c := range candidates {
		if NormalizeNickname(c.Nickname) == me {
			continue
		}
		cg, err := model.ParseGender(string(c.Gender))
		if err != nil || cg != target {
			continue
		}
		ci, err := model.ParseInterest(string(c.InterestedIn))
		if err != nil || ci != required {
			continue
		}
		c.Gender, c.InterestedIn = cg, ci
		out = append(out, c)
	}
	return out
}

// Compatible reports whether a and b would appear in each other's match lists.
func Compatible(a, b model.Session) bool {
	ab := ComputeMatches(a, []model.Checkin{asCheckin(b)})
	ba := ComputeMatches(b, []model.Checkin{asCheckin(a)})
	return len(ab) == 1 && len(ba) == 1
}

func asCheckin(s model.Session) model.Checkin {
	return model.Checkin{
		VenueID:      s.VenueID,
		Nickname:     s.Nickname,
		Gender:       s.Gender,
		InterestedIn: s.InterestedIn,
		Active:       true,
	}
}
