package docfmt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type doc struct {
	Name  string   `json:"name"`
	Times []string `json:"times"`
}

func TestDecodeJSONAndYAML(t *testing.T) {
	t.Parallel()

	var a, b doc
	require.NoError(t, Decode([]byte(`{"name":"x","times":["8","12:30"]}`), &a, true))
	require.NoError(t, Decode([]byte("name: x\ntimes:\n  - \"8\"\n  - \"12:30\"\n"), &b, true))
	require.Equal(t, a, b)
}

func TestDecodeStrict(t *testing.T) {
	t.Parallel()

	var d doc
	require.Error(t, Decode([]byte(`{"name":"x","extra":1}`), &d, true))
	require.NoError(t, Decode([]byte(`{"name":"x","extra":1}`), &d, false))
	require.Error(t, Decode([]byte(`{"name":"x"}{"name":"y"}`), &d, false))
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	in := doc{Name: "推荐", Times: []string{"8"}}
	for _, f := range []string{FormatJSON, FormatYAML} {
		b, err := Encode(f, in)
		require.NoError(t, err)
		var out doc
		require.NoError(t, Decode(b, &out, true))
		require.Equal(t, in, out)
	}
}

func TestFormatOfAndHash(t *testing.T) {
	t.Parallel()

	require.Equal(t, FormatYAML, FormatOf("cfg/config.YML"))
	require.Equal(t, FormatJSON, FormatOf("config.json"))
	require.Zero(t, Hash(nil))
	require.Equal(t, Hash([]byte("a")), Hash([]byte("a")))
	require.NotEqual(t, Hash([]byte("a")), Hash([]byte("b")))
}
