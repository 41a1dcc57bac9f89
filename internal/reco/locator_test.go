package reco

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLocator(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in     string
		id     string
		weight float64
		ok     bool
	}{
		{"https://y.qq.com/n/ryqq_v2/playlist/7671500210|1", "7671500210", 1, true},
		{"https://y.qq.com/n/ryqq/playlist/7671500210|2.5", "7671500210", 2.5, true},
		{"https://i.y.qq.com/n2/m/share/details/taoge.html?disstid=123456&x=1", "123456", 1, true},
		{"https://example.com/list?id=998877|0", "998877", 0, true},
		{"7671500210", "7671500210", 1, true},
		{"7671500210|abc", "7671500210", 1, true},
		{"  55555 | 3 ", "55555", 3, true},
		{"1234", "", 0, false},
		{"https://example.com/playlist/abc", "", 0, false},
		{"", "", 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			l, err := ParseLocator(tc.in)
			if !tc.ok {
				require.Error(t, err)
				require.True(t, errors.Is(err, ErrInvalidLocator))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.id, l.SourceID)
			require.Equal(t, tc.weight, l.Weight)
		})
	}
}

func TestParseLocatorNegativeWeightIsIneligible(t *testing.T) {
	t.Parallel()
	l, err := ParseLocator("123456|-4")
	require.NoError(t, err)
	require.Zero(t, l.Weight)
}

func TestParseLocatorList(t *testing.T) {
	t.Parallel()
	ls, invalid := ParseLocatorList("123456|2, nope ,https://y.qq.com/n/ryqq/playlist/7654321,")
	require.Len(t, ls, 2)
	require.Equal(t, "123456", ls[0].SourceID)
	require.Equal(t, 2.0, ls[0].Weight)
	require.Equal(t, "7654321", ls[1].SourceID)
	require.Equal(t, []string{"nope"}, invalid)
}

func TestLocatorJSON(t *testing.T) {
	t.Parallel()

	var got []LocatorSpec
	doc := `[
		"https://y.qq.com/n/ryqq_v2/playlist/7671500210|1",
		{"id": "123456", "weight": 3},
		{"url": "https://y.qq.com/n/ryqq/playlist/555555"},
		{"reference": "garbage"}
	]`
	require.NoError(t, json.Unmarshal([]byte(doc), &got))
	require.Len(t, got, 4)
	require.Equal(t, "7671500210", got[0].SourceID)
	require.Equal(t, 3.0, got[1].Weight)
	require.Equal(t, "555555", got[2].SourceID)
	require.Equal(t, 1.0, got[2].Weight)
	require.False(t, got[3].Valid())

	b, err := json.Marshal(got[1])
	require.NoError(t, err)
	require.JSONEq(t, `"123456|3"`, string(b))
}
