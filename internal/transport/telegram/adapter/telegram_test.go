package adapter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	logx "recobot/pkg/logx"
)

func TestSplitTelegramText(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"short"}, splitTelegramText("short", 10))

	long := strings.Repeat("a", 8) + "\n" + strings.Repeat("b", 8)
	require.Equal(t, []string{strings.Repeat("a", 8), strings.Repeat("b", 8)}, splitTelegramText(long, 10))

	// no usable line break: hard cut on runes
	got := splitTelegramText(strings.Repeat("音", 25), 10)
	require.Len(t, got, 3)
	require.Equal(t, 10, len([]rune(got[0])))
	require.Equal(t, 5, len([]rune(got[2])))
}

func TestNewRejectsEmptyToken(t *testing.T) {
	t.Parallel()
	_, err := New(Config{Token: "  "}, logx.Nop())
	require.Error(t, err)
}
