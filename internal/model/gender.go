package model

import (
	"fmt"
	"strings"
)

// Gender is the stated gender of a checked-in user.
type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

// Interest is the gender a user is interested in, in plural form.
type Interest string

const (
	Men   Interest = "men"
	Women Interest = "women"
)

// ParseGender normalizes s (trimmed, case-insensitive) into a Gender.
func ParseGender(s string) (Gender, error) {
	switch g := Gender(strings.ToLower(strings.TrimSpace(s))); g {
	case Male, Female:
		return g, nil
	}
	return "", fmt.Errorf("unknown gender %q", s)
}

// ParseInterest normalizes s (trimmed, case-insensitive) into an Interest.
func ParseInterest(s string) (Interest, error) {
	switch i := Interest(strings.ToLower(strings.TrimSpace(s))); i {
	case Men, Women:
		return i, nil
	}
	return "", fmt.Errorf("unknown interest %q", s)
}

// Valid reports whether g is one of the known genders.
func (g Gender) Valid() bool {
	return g == Male || g == Female
}

// Valid reports whether i is one of the known interests.
func (i Interest) Valid() bool {
	return i == Men || i == Women
}

// TargetGender is the gender a person with this interest is looking for.
func (i Interest) TargetGender() Gender {
	if i == Men {
		return Male
	}
	return Female
}

// RequiredInterest is the interest a partner must have to be interested in
// someone of gender g.
func (g Gender) RequiredInterest() Interest {
	if g == Male {
		return Men
	}
	return Women
}

// Label returns the display label used by the client.
func (g Gender) Label() string {
	if g == Male {
		return "Hombre"
	}
	return "Mujer"
}

// Label returns the display label used by the client.
func (i Interest) Label() string {
	if i == Men {
		return "Hombres"
	}
	return "Mujeres"
}
