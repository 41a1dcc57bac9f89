package reco

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTriggerFixedTimes(t *testing.T) {
	t.Parallel()

	ts, err := ParseTrigger("cron", "8,12:30,18")
	require.NoError(t, err)
	require.Equal(t, TriggerFixedTimes, ts.Kind)
	require.Equal(t, []DailyTime{
		{Index: 0, Hour: 8},
		{Index: 1, Hour: 12, Minute: 30},
		{Index: 2, Hour: 18},
	}, ts.Times)
	require.Equal(t, "cron(08:00,12:30,18:00)", ts.String())
}

func TestParseTriggerKeepsIndexAcrossMalformed(t *testing.T) {
	t.Parallel()

	ts, err := ParseTrigger("cron", "8, 25, x:10 ,20:15")
	require.NoError(t, err)
	require.Equal(t, []string{"25", "x:10"}, ts.Skipped)
	require.Len(t, ts.Times, 2)
	require.Equal(t, 0, ts.Times[0].Index)
	require.Equal(t, 3, ts.Times[1].Index)
}

func TestParseTriggerRejects(t *testing.T) {
	t.Parallel()

	cases := []struct{ mode, value string }{
		{"cron", ""},
		{"cron", "25,99"},
		{"interval", "0"},
		{"interval", "-5"},
		{"interval", "ten"},
		{"weekly", "1"},
	}
	for _, tc := range cases {
		_, err := ParseTrigger(tc.mode, tc.value)
		require.Error(t, err, "%s:%s", tc.mode, tc.value)
		require.True(t, errors.Is(err, ErrInvalidScheduleSpec))
	}
}

func TestParseTriggerText(t *testing.T) {
	t.Parallel()

	ts, err := ParseTriggerText("interval:30")
	require.NoError(t, err)
	require.Equal(t, TriggerInterval, ts.Kind)
	require.Equal(t, 30, ts.Minutes)
	require.Equal(t, "interval(30分钟)", ts.String())

	ts, err = ParseTriggerText("cron:8,12,18")
	require.NoError(t, err)
	require.Len(t, ts.Times, 3)

	// no mode prefix: "12:30" is a time, not mode "12"
	ts, err = ParseTriggerText("12:30")
	require.NoError(t, err)
	require.Equal(t, []DailyTime{{Hour: 12, Minute: 30}}, ts.Times)
	require.Equal(t, ModeDaily, ts.Mode)
}
