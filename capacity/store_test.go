package capacity

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/activityboard/activity"
	"github.com/nomis52/activityboard/metrics"
)

var storeBase = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func reportAt(i int) Report {
	return Report{
		At:         storeBase.Add(time.Duration(i) * 5 * time.Minute),
		Activities: []ActivityReport{{Name: "Chess Club", Participants: i, MaxParticipants: 12, SpotsLeft: 12 - i}},
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(3)
	assert.Empty(t, store.History())

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(reportAt(i)))
	}

	history := store.History()
	require.Len(t, history, 3)
	assert.Equal(t, storeBase.Add(20*time.Minute), history[0].At, "newest first")
	assert.Equal(t, storeBase.Add(10*time.Minute), history[2].At)

	// History returns a copy.
	history[0].Activities[0].Name = "changed"
	assert.Equal(t, "Chess Club", store.History()[0].Activities[0].Name)
}

func TestDiskStore_Save(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, 10, discardLogger())
	require.NoError(t, err)
	assert.Empty(t, store.History())

	require.NoError(t, store.Save(reportAt(0)))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "2026-10-16T09-00-00.000.json", files[0].Name())
}

func TestDiskStore_SaveWithoutTime(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), 10, discardLogger())
	require.NoError(t, err)

	err = store.Save(Report{})
	assert.ErrorContains(t, err, "cannot save report without a time")
}

func TestDiskStore_MaxCount(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, 3, discardLogger())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(reportAt(i)))
	}

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 3, "old report files are removed")

	require.NoError(t, store.Reload())
	history := store.History()
	require.Len(t, history, 3)
	for i := 0; i < len(history)-1; i++ {
		assert.True(t, history[i].At.After(history[i+1].At))
	}
	assert.Equal(t, 4, history[0].Activities[0].Participants)
}

func TestDiskStore_ShrinksOnRestart(t *testing.T) {
	dir := t.TempDir()
	first, err := NewDiskStore(dir, 10, discardLogger())
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.NoError(t, first.Save(reportAt(i)))
	}

	second, err := NewDiskStore(dir, 3, discardLogger())
	require.NoError(t, err)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 3, "files beyond the new size are removed on load")

	for i := 10; i < 13; i++ {
		require.NoError(t, second.Save(reportAt(i)))
	}

	files, err = os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "2026-10-16T09-50-00.000.json", files[0].Name())

	history := second.History()
	require.Len(t, history, 3)
	assert.Equal(t, 12, history[0].Activities[0].Participants)
}

func TestDiskStore_SaveSameTimeReplaces(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, 3, discardLogger())
	require.NoError(t, err)

	require.NoError(t, store.Save(reportAt(0)))
	require.NoError(t, store.Save(reportAt(0)))

	assert.Len(t, store.History(), 1)
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestDiskStore_LoadsExistingReports(t *testing.T) {
	dir := t.TempDir()
	first, err := NewDiskStore(dir, 10, discardLogger())
	require.NoError(t, err)
	require.NoError(t, first.Save(reportAt(0)))
	require.NoError(t, first.Save(reportAt(1)))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644))

	second, err := NewDiskStore(dir, 10, discardLogger())
	require.NoError(t, err)

	history := second.History()
	require.Len(t, history, 2)
	assert.True(t, history[0].At.Equal(storeBase.Add(5*time.Minute)))
}

func TestReporter_UsesStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, 10, discardLogger())
	require.NoError(t, err)
	require.NoError(t, store.Save(reportAt(0)))

	reg, err := metrics.NewScrapeRegistry()
	require.NoError(t, err)
	lister := listerFunc(func(ctx context.Context) (activity.Collection, error) {
		return activity.NewCollection(activity.Activity{Name: "Chess Club", MaxParticipants: 12}), nil
	})
	r, err := NewReporter(lister, reg, discardLogger(), WithStore(store))
	require.NoError(t, err)

	last := r.Last()
	require.NotNil(t, last, "last report is restored from the store")
	assert.True(t, last.At.Equal(storeBase))

	r.now = func() time.Time { return storeBase.Add(time.Hour) }
	require.NoError(t, r.Run(context.Background()))

	history := r.History()
	require.Len(t, history, 2)
	assert.True(t, history[0].At.Equal(storeBase.Add(time.Hour)))
	assert.Equal(t, 12, history[0].Activities[0].SpotsLeft)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
