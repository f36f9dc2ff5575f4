package cryptox

import (
	"strings"
	"unicode"
)

// commonSubstrings are fragments that make a password trivially guessable.
var commonSubstrings = []string{
	"password", "123456", "12345", "qwerty", "abc123",
	"letmein", "welcome", "admin", "iloveyou", "monkey", "dragon",
}

// EstimateStrength scores a password from 0 (unusable) to 100 (strong).
// The score is advisory only and never blocks encryption; callers should
// gate user-chosen passwords on a threshold of their choosing.
//
// Scoring: length and character-class diversity add points; repeated runs
// and well-known substrings subtract them.
func EstimateStrength(password string) int {
	if password == "" {
		return 0
	}

	score := 0

	// Length: 4 points per character up to 50.
	if l := len(password) * 4; l > 50 {
		score = 50
	} else {
		score = l
	}

	// Character-class diversity.
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	for _, present := range []bool{lower, upper, digit, symbol} {
		if present {
			score += 10
		}
	}
	if lower && upper && digit && symbol {
		score += 10
	}

	// Repetition penalty: each character equal to its predecessor.
	prev := rune(-1)
	for _, r := range password {
		if r == prev {
			score -= 3
		}
		prev = r
	}

	// Common-substring penalty.
	lowered := strings.ToLower(password)
	for _, s := range commonSubstrings {
		if strings.Contains(lowered, s) {
			score -= 25
		}
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
