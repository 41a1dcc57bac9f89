package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"recobot/internal/reco"
	"recobot/internal/storage"
	logx "recobot/pkg/logx"
)

func newStore(t *testing.T) (storage.Store, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := storage.Open(storage.Config{Driver: "file", Path: dir}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st, dir
}

func locs(t *testing.T, raw string) []reco.LocatorSpec {
	t.Helper()
	ls, _ := reco.ParseLocatorList(raw)
	return ls
}

func TestSetRegistryProvisionsDefault(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, dir := newStore(t)

	r := NewSetRegistry(st, SetOptions{}, logx.Nop())
	changed, err := r.Load(ctx)
	require.NoError(t, err)
	require.True(t, changed)

	def, ok := r.Get(DefaultSetName)
	require.True(t, ok)
	require.Equal(t, "7671500210", def.Sources[0].SourceID)
	require.FileExists(t, filepath.Join(dir, storage.DocSets+".json"))

	changed, err = r.Load(ctx)
	require.NoError(t, err)
	require.False(t, changed)
}

func TestSetRegistryCreateDeleteRestores(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, _ := newStore(t)

	r := NewSetRegistry(st, SetOptions{}, logx.Nop())
	_, err := r.Load(ctx)
	require.NoError(t, err)
	before := r.List()

	_, err = r.Create(ctx, "X", "42", locs(t, "111111|2,222222"))
	require.NoError(t, err)

	_, err = r.Create(ctx, "X", "42", locs(t, "333333"))
	require.True(t, errors.Is(err, ErrDuplicateSetName))

	require.True(t, errors.Is(r.Delete(ctx, "X", "7", false), ErrPermissionDenied))
	require.NoError(t, r.Delete(ctx, "X", "42", false))
	require.Equal(t, before, r.List())

	require.True(t, errors.Is(r.Delete(ctx, "X", "42", false), ErrUnknownSetName))
}

func TestSetRegistryDeleteRules(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, _ := newStore(t)

	r := NewSetRegistry(st, SetOptions{}, logx.Nop())
	_, err := r.Load(ctx)
	require.NoError(t, err)

	// no creator: admin only
	require.True(t, errors.Is(r.Delete(ctx, DefaultSetName, "", false), ErrPermissionDenied))
	require.NoError(t, r.Delete(ctx, DefaultSetName, "1", true))
	_, ok := r.Get(DefaultSetName)
	require.False(t, ok)
}

func TestSetRegistryRejectsUnusableSources(t *testing.T) {
	t.Parallel()
	st, _ := newStore(t)
	r := NewSetRegistry(st, SetOptions{}, logx.Nop())

	_, err := r.Create(context.Background(), "bad", "1", []reco.LocatorSpec{{Reference: "nope"}})
	require.True(t, errors.Is(err, reco.ErrInvalidLocator))
}

func TestSetRegistryPersistsAcrossInstances(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, _ := newStore(t)

	a := NewSetRegistry(st, SetOptions{}, logx.Nop())
	_, err := a.Load(ctx)
	require.NoError(t, err)
	_, err = a.Create(ctx, "chill", "42", locs(t, "https://y.qq.com/n/ryqq/playlist/555555|3"))
	require.NoError(t, err)

	b := NewSetRegistry(st, SetOptions{}, logx.Nop())
	_, err = b.Load(ctx)
	require.NoError(t, err)
	got, ok := b.Get("chill")
	require.True(t, ok)
	require.Equal(t, "42", got.Creator)
	require.Equal(t, 3.0, got.Sources[0].Weight)
	require.Len(t, b.List(), 2)
}

func TestSetRegistryLegacyAndMalformed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, dir := newStore(t)
	path := filepath.Join(dir, storage.DocSets+".json")

	legacy := `{"Old": {"creator": null, "playlists": ["123456|2", {"id": "654321", "weight": 0.5}, "junk"]}}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	r := NewSetRegistry(st, SetOptions{}, logx.Nop())
	_, err := r.Load(ctx)
	require.NoError(t, err)
	old, ok := r.Get("Old")
	require.True(t, ok)
	require.Len(t, old.Sources, 2)
	require.Empty(t, old.Creator)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err = r.Load(ctx)
	require.True(t, errors.Is(err, ErrMalformedDocument))
	_, ok = r.Get(DefaultSetName)
	require.True(t, ok)
}

func TestSetRegistryMalformedBlocksWrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, dir := newStore(t)
	path := filepath.Join(dir, storage.DocSets+".json")

	broken := []byte(`{"Mine": {"sources": ["123456"]`)
	require.NoError(t, os.WriteFile(path, broken, 0o644))

	r := NewSetRegistry(st, SetOptions{}, logx.Nop())
	_, err := r.Load(ctx)
	require.ErrorIs(t, err, ErrMalformedDocument)

	_, err = r.Create(ctx, "mix", "2", locs(t, "777777"))
	require.ErrorIs(t, err, ErrMalformedDocument)
	require.ErrorIs(t, r.Delete(ctx, DefaultSetName, "", true), ErrMalformedDocument)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, broken, onDisk)

	require.NoError(t, os.WriteFile(path, []byte(`{"Mine": {"sources": ["123456"]}}`), 0o644))
	_, err = r.Load(ctx)
	require.NoError(t, err)
	_, err = r.Create(ctx, "mix", "2", locs(t, "777777"))
	require.NoError(t, err)
	require.Len(t, r.List(), 2)
}

func TestSubscriptionRegistry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, _ := newStore(t)

	r := NewSubscriptionRegistry(st, "yaml", logx.Nop())
	_, err := r.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, r.List())

	replaced, err := r.Subscribe(ctx, Subscription{Tenant: "-100", Enabled: true, SetName: "Default", TriggerValue: "8,12:30,18", OutputCount: 0})
	require.NoError(t, err)
	require.False(t, replaced)

	got, ok := r.Get("-100")
	require.True(t, ok)
	require.Equal(t, reco.ModeDaily, got.TriggerMode)
	require.Equal(t, 1, got.OutputCount)

	replaced, err = r.Subscribe(ctx, Subscription{Tenant: "-100", Enabled: true, SetName: "Default", TriggerMode: "interval", TriggerValue: "30", OutputCount: 5})
	require.NoError(t, err)
	require.True(t, replaced)
	require.Len(t, r.List(), 1)

	_, err = r.Subscribe(ctx, Subscription{Tenant: "-200", SetName: "Default", TriggerMode: "interval", TriggerValue: "soon"})
	require.True(t, errors.Is(err, reco.ErrInvalidScheduleSpec))
	_, ok = r.Get("-200")
	require.False(t, ok)

	// a second instance sees the YAML document
	again := NewSubscriptionRegistry(st, "yaml", logx.Nop())
	_, err = again.Load(ctx)
	require.NoError(t, err)
	got, ok = again.Get("-100")
	require.True(t, ok)
	require.Equal(t, "30", got.TriggerValue)
	require.Equal(t, 5, got.OutputCount)

	require.NoError(t, r.Unsubscribe(ctx, "-100"))
	require.True(t, errors.Is(r.Unsubscribe(ctx, "-100"), ErrNotSubscribed))
}

func TestWindowRegistry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, dir := newStore(t)

	r := NewWindowRegistry(st, "json", logx.Nop())
	_, err := r.Load(ctx)
	require.NoError(t, err)
	require.Len(t, r.Windows(), len(reco.DefaultWindows()))

	path := filepath.Join(dir, storage.DocWindows+".json")
	doc := `[{"start_time":"09:00","end_time":"10:00","messages":["hi"]},{"start_time":"bad","end_time":"10:00","messages":["x"]}]`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	changed, err := r.Load(ctx)
	require.NoError(t, err)
	require.True(t, changed)
	require.Len(t, r.Windows(), 1)

	require.NoError(t, os.WriteFile(path, []byte("[oops"), 0o644))
	_, err = r.Load(ctx)
	require.Error(t, err)
	require.Len(t, r.Windows(), 1)
}
