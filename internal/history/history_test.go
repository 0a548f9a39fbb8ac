package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ancients-collective/vitals/internal/types"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	return store
}

func sampleResult(id string, ts time.Time, health, speed int) *types.ScanResult {
	return &types.ScanResult{
		ScanID:     id,
		Timestamp:  ts,
		DurationMS: 1234,
		System:     types.SystemInfo{Hostname: "box", OS: "linux", Arch: "amd64"},
		Scores:     types.Scores{Health: health, Speed: speed},
		Issues: []types.Issue{
			{
				ID:       "firewall_disabled",
				Severity: types.SeverityCritical,
				Title:    "Your firewall is off",
				Impact:   types.ImpactSecurity,
			},
		},
	}
}

func TestLoadLatest_EmptyStore(t *testing.T) {
	store := openTestStore(t)

	result, err := store.LoadLatest()

	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestSaveAndLoadLatest(t *testing.T) {
	store := openTestStore(t)
	saved := sampleResult("scan-1", time.Now().UTC().Truncate(time.Second), 80, 95)

	require.NoError(t, store.Save(saved))
	loaded, err := store.LoadLatest()

	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, saved.ScanID, loaded.ScanID)
	assert.Equal(t, saved.Scores, loaded.Scores)
	require.Len(t, loaded.Issues, 1)
	assert.Equal(t, "firewall_disabled", loaded.Issues[0].ID)
}

func TestLoadLatest_ReturnsNewest(t *testing.T) {
	store := openTestStore(t)
	base := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.Save(sampleResult("scan-old", base.Add(-time.Hour), 70, 70)))
	require.NoError(t, store.Save(sampleResult("scan-new", base, 90, 90)))

	loaded, err := store.LoadLatest()

	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "scan-new", loaded.ScanID)
}

func TestRecent_NewestFirstAndLimited(t *testing.T) {
	store := openTestStore(t)
	base := time.Now().UTC().Truncate(time.Second)

	for i := 0; i < 5; i++ {
		r := sampleResult("scan-"+string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute), 80+i, 90)
		require.NoError(t, store.Save(r))
	}

	summaries, err := store.Recent(3)

	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, "scan-e", summaries[0].ScanID)
	assert.Equal(t, 84, summaries[0].Health)
	assert.Equal(t, "scan-c", summaries[2].ScanID)
}

func TestSave_ReplacesSameScanID(t *testing.T) {
	store := openTestStore(t)
	ts := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.Save(sampleResult("scan-1", ts, 50, 50)))
	require.NoError(t, store.Save(sampleResult("scan-1", ts, 60, 60)))

	summaries, err := store.Recent(10)

	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 60, summaries[0].Health)
}
