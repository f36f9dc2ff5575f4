package cli

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	i := 0
	readPassword = func(int) ([]byte, error) {
		require.Less(t, i, len(answers), "unexpected password prompt")
		pw := []byte(answers[i])
		i++
		return pw, nil
	}
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	reader := bufio.NewReader(strings.NewReader("  hello world  \n"))

	got, err := GetSimpleText(reader, "Say something", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
	assert.Contains(t, out.String(), "Say something")
}

func TestGetSimpleText_EOFWithPartialLine(t *testing.T) {
	var out bytes.Buffer
	reader := bufio.NewReader(strings.NewReader("partial"))

	got, err := GetSimpleText(reader, "Prompt", &out)
	require.NoError(t, err)
	assert.Equal(t, "partial", got)
}

func TestGetPassword(t *testing.T) {
	stubPasswords(t, "s3cret")
	var out bytes.Buffer

	pw, err := GetPassword(&out, "Enter password: ")
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret"), pw)
	assert.Contains(t, out.String(), "Enter password: ")
}

func TestGetNewPassword(t *testing.T) {
	t.Run("accepted when strong and confirmed", func(t *testing.T) {
		stubPasswords(t, "correct horse battery staple", "correct horse battery staple")
		var out bytes.Buffer

		pw, err := GetNewPassword(&out)
		require.NoError(t, err)
		assert.Equal(t, []byte("correct horse battery staple"), pw)
	})

	t.Run("rejected when weak", func(t *testing.T) {
		stubPasswords(t, "abc")
		var out bytes.Buffer

		_, err := GetNewPassword(&out)
		require.ErrorContains(t, err, "too weak")
	})

	t.Run("rejected on mismatch", func(t *testing.T) {
		stubPasswords(t, "correct horse battery staple", "correct horse battery stable")
		var out bytes.Buffer

		_, err := GetNewPassword(&out)
		require.ErrorContains(t, err, "do not match")
	})
}
