// internal/game/match_test.go
package game

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jamsesh/jamsesh/internal/models"
)

func song(title, artist string) *models.Song {
	return &models.Song{Title: title, Artist: artist}
}

func TestMatchesExactTitle(t *testing.T) {
	s := song("Blinding Lights - The Weeknd", "The Weeknd")

	assert.True(t, Matches("Blinding Lights - The Weeknd", s))
	assert.True(t, Matches("blinding lights the weeknd", s), "case and punctuation insensitive")
	assert.True(t, Matches("  BLINDING   lights,  the weeknd!  ", s))
}

func TestMatchesTitleParts(t *testing.T) {
	s := song("Blinding Lights - The Weeknd", "The Weeknd")

	assert.True(t, Matches("blinding lights", s), "either half of a split title matches")
	assert.True(t, Matches("the weeknd", s))
	assert.True(t, Matches("blinding lites", s), "typo inside the threshold")
	assert.False(t, Matches("xyz123", s))
	assert.False(t, Matches("", s))
}

func TestMatchesArtist(t *testing.T) {
	s := song("Paradise", "Coldplay")

	assert.True(t, Matches("coldplay", s))
	assert.True(t, Matches("coldpaly", s), "artist typo inside threshold")
	assert.False(t, Matches("beatles", s))
}

func TestMatchesEditDistanceBoundary(t *testing.T) {
	// "paradise" has 8 runes, so the threshold is floor(8*0.25) = 2 edits.
	s := song("Paradise", "Coldplay")

	assert.True(t, Matches("paradize", s), "one edit")
	assert.True(t, Matches("parodize", s), "two edits, at the threshold")
	assert.False(t, Matches("porodize", s), "three edits, past the threshold")
}

func TestMatchesShortTargetThresholdFloor(t *testing.T) {
	// Short targets still tolerate a single edit.
	s := song("Hey Ya", "OutKast")
	assert.True(t, Matches("hey yo", s))
}

func TestMatchesSubstring(t *testing.T) {
	s := song("Blinding Lights - The Weeknd", "The Weeknd")

	assert.True(t, Matches("light", s), "guess of length >= 3 contained in title")
	assert.False(t, Matches("bl", s), "two-character fragment rejected")

	short := song("Run", "Foo Fighters")
	assert.True(t, Matches("run run run", short), "guess containing the whole title")
}
