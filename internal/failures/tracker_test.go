package failures

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/store"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTracker(t *testing.T) (*Tracker, *clock, store.Store) {
	t.Helper()
	c := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := store.NewMemory().Bucket(store.BucketFailures)
	opts := DefaultOptions()
	opts.Now = c.Now
	return NewTracker(s, opts, nil), c, s
}

func TestHash(t *testing.T) {
	assert.Equal(t, "1505", Hash(""))
	// 5381*33 + 'a'
	assert.Equal(t, "2b606", Hash("a"))
	assert.Equal(t, Hash("http://example.com"), Hash("http://example.com"))
	assert.NotEqual(t, Hash("http://example.com"), Hash("http://example.org"))
	assert.Regexp(t, `^[0-9a-f]{1,8}$`, Hash("http://example.com/a/very/long/path?with=query&and=more"))
}

func TestHashCoversBothSurrogates(t *testing.T) {
	// U+1F600 is a surrogate pair: two code units.
	var h uint32 = 5381
	for _, u := range []uint32{0xD83D, 0xDE00} {
		h = h*33 + u
	}
	assert.Equal(t, Hash("\U0001F600"), strconv.FormatUint(uint64(h), 16))
}

func TestFirstFailureStartsAtZero(t *testing.T) {
	tr, _, _ := newTracker(t)
	ctx := context.Background()

	rec, err := tr.RecordFailure(ctx, "http://example.com", "")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Failed)
	assert.Equal(t, []string{ReasonSlow}, rec.Reason)
	assert.Equal(t, "http://example.com", rec.URL)
}

func TestEscalation(t *testing.T) {
	tr, c, _ := newTracker(t)
	ctx := context.Background()
	url := "http://example.com"

	decisions := make([]Decision, 0, 5)
	for i := 0; i < 5; i++ {
		_, err := tr.RecordFailure(ctx, url, ReasonServerDisconnect)
		require.NoError(t, err)
		c.now = c.now.Add(time.Minute)

		d, err := tr.Evaluate(ctx, url, true, false)
		require.NoError(t, err)
		decisions = append(decisions, d)
	}

	// stored counts 0,1,2,3,4
	assert.Equal(t, []Decision{Allow, Allow, Allow, SoftBlock, HardBlock}, decisions)

	rec, found, err := tr.Get(ctx, url)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, rec.Reason, 5)
}

func TestOverrideAndOffline(t *testing.T) {
	tr, _, _ := newTracker(t)
	ctx := context.Background()
	url := "http://example.com"

	for i := 0; i < 4; i++ {
		_, err := tr.RecordFailure(ctx, url, ReasonSlow)
		require.NoError(t, err)
	}

	d, err := tr.Evaluate(ctx, url, true, true)
	require.NoError(t, err)
	assert.Equal(t, Allow, d, "override tolerates a soft block")

	_, err = tr.RecordFailure(ctx, url, ReasonSlow)
	require.NoError(t, err)

	d, err = tr.Evaluate(ctx, url, false, false)
	require.NoError(t, err)
	assert.Equal(t, SoftBlock, d, "hard block requires connectivity")

	d, err = tr.Evaluate(ctx, url, true, true)
	require.NoError(t, err)
	assert.Equal(t, HardBlock, d, "override does not lift a hard block")
}

func TestStaleRecordResets(t *testing.T) {
	tr, c, _ := newTracker(t)
	ctx := context.Background()
	url := "http://example.com"

	for i := 0; i < 5; i++ {
		_, err := tr.RecordFailure(ctx, url, ReasonSlow)
		require.NoError(t, err)
	}

	c.now = c.now.Add(time.Hour)
	d, err := tr.Evaluate(ctx, url, true, false)
	require.NoError(t, err)
	assert.Equal(t, Allow, d)

	rec, err := tr.RecordFailure(ctx, url, ReasonLoadError)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Failed)
	assert.Equal(t, []string{ReasonLoadError}, rec.Reason)
}

func TestClear(t *testing.T) {
	tr, _, s := newTracker(t)
	ctx := context.Background()
	url := "http://example.com"

	for i := 0; i < 4; i++ {
		_, err := tr.RecordFailure(ctx, url, ReasonSlow)
		require.NoError(t, err)
	}
	require.NoError(t, tr.Clear(ctx, url))

	_, err := s.Get(ctx, Hash(url))
	assert.ErrorIs(t, err, store.ErrNotFound)

	rec, err := tr.RecordFailure(ctx, url, ReasonSlow)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Failed)
}

func TestStoredFormat(t *testing.T) {
	tr, _, s := newTracker(t)
	ctx := context.Background()

	_, err := tr.RecordFailure(ctx, "http://example.com", ReasonSlow)
	require.NoError(t, err)

	raw, err := s.Get(ctx, Hash("http://example.com"))
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"failed":0,"dt":"2024-05-01T12:00:00Z","url":"http://example.com","reason":["slow"]}`,
		string(raw))
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "soft_block", SoftBlock.String())
	assert.Equal(t, "hard_block", HardBlock.String())
	assert.Equal(t, "decision(9)", Decision(9).String())
}
