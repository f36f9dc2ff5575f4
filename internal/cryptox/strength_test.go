package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEstimateStrength_Empty(t *testing.T) {
	require.Equal(t, 0, EstimateStrength(""))
}

func TestEstimateStrength_CommonPasswordsScoreLow(t *testing.T) {
	for _, pw := range []string{"password", "password123", "qwerty12", "letmein"} {
		require.Less(t, EstimateStrength(pw), 50, "password %q", pw)
	}
}

func TestEstimateStrength_RepetitionPenalized(t *testing.T) {
	require.Less(t, EstimateStrength("aaaaaaaaaaaa"), EstimateStrength("axbyczdwevfu"))
}

func TestEstimateStrength_StrongPasswordScoresHigh(t *testing.T) {
	require.GreaterOrEqual(t, EstimateStrength("zT7#pLq9$WvX2m!"), 80)
}

func TestEstimateStrength_Bounds(t *testing.T) {
	for _, pw := range []string{"", "a", "passwordpasswordpassword", "Zx9!Zx9!Zx9!Zx9!Zx9!Zx9!Zx9!"} {
		s := EstimateStrength(pw)
		require.GreaterOrEqual(t, s, 0)
		require.LessOrEqual(t, s, 100)
	}
}
