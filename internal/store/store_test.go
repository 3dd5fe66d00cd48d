package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(maxTotal, maxItem int64) *Store {
	return New(Config{MaxTotalBytes: maxTotal, MaxItemBytes: maxItem}, zap.NewNop())
}

func TestPutAndGet(t *testing.T) {
	s := newTestStore(1<<20, 1<<19)

	res, err := s.Put("hello world", "greeting.txt", "text/plain")
	require.NoError(t, err)
	assert.Len(t, res.ID, 16)
	assert.Contains(t, res.Reference, "greeting.txt")
	assert.Contains(t, res.Reference, res.ID)

	got, ok := s.Get(res.ID)
	require.True(t, ok)
	assert.Equal(t, "hello world", got)

	_, ok = s.Get("deadbeefdeadbeef")
	assert.False(t, ok, "unknown id is a miss, not an error")
}

func TestPutIdempotentContentAddressing(t *testing.T) {
	s := newTestStore(1<<20, 1<<19)

	first, err := s.Put("identical payload", "a.txt", "text/plain")
	require.NoError(t, err)
	second, err := s.Put("identical payload", "b.txt", "application/json")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "byte-identical content yields the same id")
	assert.Equal(t, 1, s.Stats().Entries, "re-uploads do not duplicate storage")
	assert.Equal(t, int64(len("identical payload")), s.Stats().TotalBytes)
}

func TestPutRejectsOversizedItem(t *testing.T) {
	s := newTestStore(1<<20, 10)

	_, err := s.Put(strings.Repeat("x", 11), "big.bin", "application/octet-stream")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContentTooLarge)
	assert.Equal(t, 0, s.Stats().Entries, "rejection must not mutate the store")
}

func TestEvictionRespectsCapacity(t *testing.T) {
	// Cap of 1000 bytes; eviction frees down to 80% (800 bytes).
	s := newTestStore(1000, 500)

	base := time.Unix(1000, 0)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	// Fill with four distinct 250-byte entries: 1000 bytes, exactly at cap.
	var ids []string
	for i := 0; i < 4; i++ {
		content := strings.Repeat(fmt.Sprintf("%d", i), 250)
		res, err := s.Put(content, "", "")
		require.NoError(t, err)
		ids = append(ids, res.ID)
	}
	require.Equal(t, int64(1000), s.Stats().TotalBytes)

	// One more insert forces eviction of the oldest entries until usage
	// plus the incoming item fits under the 800-byte target.
	res, err := s.Put(strings.Repeat("z", 250), "", "")
	require.NoError(t, err)

	stats := s.Stats()
	assert.LessOrEqual(t, stats.TotalBytes, int64(1000), "aggregate cap holds after eviction")

	// The two oldest entries are gone, the two newest plus the incoming remain.
	_, ok := s.Get(ids[0])
	assert.False(t, ok, "oldest entry evicted first")
	_, ok = s.Get(ids[1])
	assert.False(t, ok, "next oldest evicted to reach target")
	_, ok = s.Get(ids[2])
	assert.True(t, ok)
	_, ok = s.Get(ids[3])
	assert.True(t, ok)
	_, ok = s.Get(res.ID)
	assert.True(t, ok)
}

func TestClearExpired(t *testing.T) {
	s := newTestStore(1<<20, 1<<19)

	base := time.Unix(1000, 0)
	now := base
	s.now = func() time.Time { return now }

	old, err := s.Put("old content here", "", "")
	require.NoError(t, err)

	now = base.Add(2 * time.Hour)
	fresh, err := s.Put("fresh content here", "", "")
	require.NoError(t, err)

	// Sweep with a one-hour threshold: only the old entry is past it.
	removed := s.ClearExpired(time.Hour)
	assert.Equal(t, 1, removed)

	_, ok := s.Get(old.ID)
	assert.False(t, ok, "entry older than max age removed")
	_, ok = s.Get(fresh.ID)
	assert.True(t, ok, "entry within max age retained")

	// An entry exactly at the threshold is kept (strictly-older semantics).
	removed = s.ClearExpired(0)
	assert.Equal(t, 0, removed, "entry uploaded at the cutoff instant survives")
}

func TestStats(t *testing.T) {
	s := newTestStore(1<<20, 1<<19)

	_, err := s.Put("some inline snippet", "", "")
	require.NoError(t, err)
	_, err = s.Put("an uploaded file body", "report.csv", "text/csv")
	require.NoError(t, err)

	stats := s.Stats()
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, 1, stats.FilesStored, "only named uploads count as files")
	assert.Equal(t, int64(len("some inline snippet")+len("an uploaded file body")), stats.TotalBytes)
	assert.False(t, stats.OldestUploaded.IsZero())
}

func TestSweeperRemovesExpiredEntries(t *testing.T) {
	s := newTestStore(1<<20, 1<<19)

	base := time.Unix(1000, 0)
	now := base
	s.now = func() time.Time { return now }

	res, err := s.Put("doomed content", "", "")
	require.NoError(t, err)

	now = base.Add(48 * time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartSweeper(ctx, 10*time.Millisecond, 24*time.Hour)

	assert.Eventually(t, func() bool {
		_, ok := s.Get(res.ID)
		return !ok
	}, time.Second, 10*time.Millisecond, "sweeper should remove the expired entry")
}

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("payload")
	b := Fingerprint("payload")
	c := Fingerprint("payload!")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", humanSize(512))
	assert.Equal(t, "9.8 KB", humanSize(10000))
	assert.Equal(t, "2.0 MB", humanSize(2<<20))
}
