// internal/game/match.go
package game

import (
	"strings"
	"unicode"

	"github.com/jamsesh/jamsesh/internal/models"
)

// Matches reports whether a free-text guess should count as correct for the
// song. Comparison is case and punctuation insensitive. Track titles often
// encode both halves of "Song - Artist", so the title is additionally split
// on separator tokens and either half can match on its own, with typos
// tolerated up to a quarter of the target's length. The layered checks
// favor recall over precision; this is a party game, not a search engine.
func Matches(guess string, song *models.Song) bool {
	g := normalize(guess)
	if g == "" {
		return false
	}
	title := normalize(song.Title)
	artist := normalize(song.Artist)

	if g == title {
		return true
	}
	for _, part := range titleParts(song.Title) {
		if len([]rune(part)) < 2 {
			continue
		}
		if g == part || withinEditDistance(g, part) {
			return true
		}
	}
	if artist != "" && (g == artist || withinEditDistance(g, artist)) {
		return true
	}
	if title != "" && withinEditDistance(g, title) {
		return true
	}
	// Partial matches: a guess of at least 3 characters contained in the
	// title, or a guess that contains the whole title. The length floor
	// keeps trivial fragments like "a" from matching everything.
	if len([]rune(g)) >= 3 && strings.Contains(title, g) {
		return true
	}
	if title != "" && strings.Contains(g, title) {
		return true
	}
	return false
}

// normalize lowercases, drops punctuation and collapses whitespace.
func normalize(s string) string {
	var b strings.Builder
	space := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
			space = false
		case unicode.IsSpace(r):
			if !space {
				b.WriteRune(' ')
				space = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// titleParts splits the raw title on separator tokens (hyphen and dash
// variants, pipe) and normalizes each part. Splitting happens before
// normalization because normalization strips the separators themselves.
func titleParts(rawTitle string) []string {
	fields := strings.FieldsFunc(rawTitle, func(r rune) bool {
		switch r {
		case '-', '‐', '–', '—', '|':
			return true
		}
		return false
	})
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if n := normalize(f); n != "" {
			parts = append(parts, n)
		}
	}
	return parts
}

// withinEditDistance accepts guesses within max(1, len(target)/4)
// Levenshtein edits of the target.
func withinEditDistance(guess, target string) bool {
	t := []rune(target)
	limit := len(t) / 4
	if limit < 1 {
		limit = 1
	}
	return levenshtein([]rune(guess), t) <= limit
}

// levenshtein computes unit-cost edit distance with the classic two-row DP.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
