package flagx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterArgs_SeparateValue(t *testing.T) {
	got := FilterArgs([]string{"-a", "localhost:8080", "-x", "junk"}, []string{"-a"})
	require.Equal(t, []string{"-a", "localhost:8080"}, got)
}

func TestFilterArgs_EqualsForm(t *testing.T) {
	got := FilterArgs([]string{"--config=conf.json", "--other=1"}, []string{"--config"})
	require.Equal(t, []string{"--config=conf.json"}, got)
}

func TestFilterArgs_FlagWithoutValue(t *testing.T) {
	got := FilterArgs([]string{"-v", "-a", "addr"}, []string{"-v", "-a"})
	require.Equal(t, []string{"-v", "-a", "addr"}, got)
}

func TestFilterArgs_NothingAllowed(t *testing.T) {
	got := FilterArgs([]string{"-a", "1", "-b", "2"}, nil)
	require.Empty(t, got)
}

func TestPositionals(t *testing.T) {
	got := Positionals(
		[]string{"-a", "https://api.example", "--config=conf.json", "upload", "report.pdf", "-v"},
		[]string{"-a", "-c", "-config"},
	)
	require.Equal(t, []string{"upload", "report.pdf"}, got)
}

func TestPositionals_NoFlags(t *testing.T) {
	got := Positionals([]string{"sessions"}, nil)
	require.Equal(t, []string{"sessions"}, got)
}
