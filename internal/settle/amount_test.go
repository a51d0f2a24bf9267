package settle

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEther(t *testing.T) {
	cases := []struct {
		input string
		wei   string
	}{
		{"0", "0"},
		{"1", "1000000000000000000"},
		{"0.0001", "100000000000000"},
		{"0.003", "3000000000000000"},
		{"1.5", "1500000000000000000"},
		{".25", "250000000000000000"},
		{"0.000000000000000001", "1"},
	}

	for _, tc := range cases {
		got, err := ParseEther(tc.input)
		require.NoError(t, err, "input %q", tc.input)
		assert.Equal(t, tc.wei, got.String(), "input %q", tc.input)
	}
}

func TestParseEtherRejectsMalformedInput(t *testing.T) {
	for _, input := range []string{"", "abc", "-1", "1.0000000000000000001", "1.2.3"} {
		_, err := ParseEther(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestFormatEther(t *testing.T) {
	cases := []struct {
		wei  string
		want string
	}{
		{"0", "0"},
		{"1000000000000000000", "1"},
		{"1500000000000000000", "1.5"},
		{"3000000000000000", "0.003"},
		{"100000000000000", "0.0001"},
		{"1", "0.000000000000000001"},
	}

	for _, tc := range cases {
		wei, ok := new(big.Int).SetString(tc.wei, 10)
		require.True(t, ok)
		assert.Equal(t, tc.want, FormatEther(wei), "wei %s", tc.wei)
	}

	assert.Equal(t, "0", FormatEther(nil))
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, value := range []string{"0.0001", "0.003", "1.5", "42"} {
		wei, err := ParseEther(value)
		require.NoError(t, err)
		assert.Equal(t, value, FormatEther(wei))
	}
}
