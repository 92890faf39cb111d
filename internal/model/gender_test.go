package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGender(t *testing.T) {
	tests := []struct {
		in      string
		want    Gender
		wantErr bool
	}{
		{"male", Male, false},
		{"  Female ", Female, false},
		{"MALE", Male, false},
		{"other", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGender(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseInterest(t *testing.T) {
	got, err := ParseInterest(" Women")
	require.NoError(t, err)
	assert.Equal(t, Women, got)

	_, err = ParseInterest("both")
	assert.Error(t, err)
}

func TestValid(t *testing.T) {
	assert.True(t, Male.Valid())
	assert.True(t, Female.Valid())
	assert.False(t, Gender("").Valid())
	assert.False(t, Gender("Male").Valid())
	assert.True(t, Women.Valid())
	assert.False(t, Interest("both").Valid())
}

func TestTranslation(t *testing.T) {
	assert.Equal(t, Male, Men.TargetGender())
	assert.Equal(t, Female, Women.TargetGender())
	assert.Equal(t, Men, Male.RequiredInterest())
	assert.Equal(t, Women, Female.RequiredInterest())
}

func TestVenueMaxActive(t *testing.T) {
	two := 2
	v := &Venue{MaxActiveMales: &two}

	limit, ok := v.MaxActive(Male)
	assert.True(t, ok)
	assert.Equal(t, 2, limit)

	_, ok = v.MaxActive(Female)
	assert.False(t, ok)
}
