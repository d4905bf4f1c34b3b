package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"nyc-kinder-workers/internal/common/database"
	apperrors "nyc-kinder-workers/internal/common/errors"
	"nyc-kinder-workers/internal/common/logger"
)

// ==========================
// Test Helpers
// ==========================

// memStore is an in-memory Store that records every delete call.
type memStore struct {
	mu      sync.Mutex
	dbns    map[string]struct{}
	deletes [][]string
	failOn  int // 1-based delete call that fails; 0 never fails
	calls   int
}

func newMemStore(dbns ...string) *memStore {
	s := &memStore{dbns: make(map[string]struct{}, len(dbns))}
	for _, d := range dbns {
		s.dbns[d] = struct{}{}
	}
	return s
}

func (s *memStore) ListSchoolDBNs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.dbns))
	for d := range s.dbns {
		out = append(out, d)
	}
	sort.Strings(out)
	return out, nil
}

func (s *memStore) DeleteSchools(_ context.Context, dbns []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failOn == s.calls {
		return 0, errors.New("connection reset by peer")
	}
	s.deletes = append(s.deletes, append([]string(nil), dbns...))
	var n int64
	for _, d := range dbns {
		if _, ok := s.dbns[d]; ok {
			delete(s.dbns, d)
			n++
		}
	}
	return n, nil
}

func (s *memStore) remaining() []string {
	out, _ := s.ListSchoolDBNs(context.Background())
	return out
}

type fakeNotifier struct {
	subjects []string
	messages []string
}

func (f *fakeNotifier) Publish(_ context.Context, subject, message string) (string, error) {
	f.subjects = append(f.subjects, subject)
	f.messages = append(f.messages, message)
	return "msg", nil
}

type failingInvalidator struct{ calls int }

func (f *failingInvalidator) Invalidate(context.Context, []string) error {
	f.calls++
	return errors.New("redis down")
}

// nycDBNs returns n identifiers spread over districts 1-32.
func nycDBNs(n int) []string {
	letters := map[int]string{}
	for d := 1; d <= 32; d++ {
		switch {
		case d <= 6:
			letters[d] = "M"
		case d <= 12:
			letters[d] = "X"
		case d <= 23 || d == 32:
			letters[d] = "K"
		case d <= 30:
			letters[d] = "Q"
		default:
			letters[d] = "R"
		}
	}
	out := make([]string, n)
	for i := range out {
		d := i%32 + 1
		out[i] = fmt.Sprintf("%02d%s%03d", d, letters[d], i)
	}
	return out
}

// nonNYCDBNs returns n identifiers in citywide districts or malformed.
func nonNYCDBNs(n int) []string {
	prefixes := []string{"75K", "79M", "84X", "00Q", "XXR"}
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%03d", prefixes[i%len(prefixes)], i)
	}
	return out
}

func observedLogger() (logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.NewZapAdapter(zap.New(core)), logs
}

// ==========================
// Pure helpers
// ==========================

func TestNonNYC(t *testing.T) {
	in := []string{"02M158", "75K141", "31R456", "84X123", "75K141", "", "3", "32K123", "AB123"}

	assert.Equal(t, []string{"75K141", "84X123", "", "3", "AB123"}, NonNYC(in))
	assert.Empty(t, NonNYC([]string{"01M015", "13K009"}))
}

func TestBatches(t *testing.T) {
	items := nonNYCDBNs(205)

	batches := Batches(items, 100)

	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 100)
	assert.Len(t, batches[1], 100)
	assert.Len(t, batches[2], 5)
	assert.Equal(t, items[200:], batches[2])

	assert.Nil(t, Batches(nil, 100))
	assert.Len(t, Batches(items, 0), 3, "non-positive size falls back to the default")
}

// ==========================
// Run
// ==========================

func TestRun_DeletesNonNYCInBatches(t *testing.T) {
	keep := nycDBNs(150)
	drop := nonNYCDBNs(205)
	store := newMemStore(append(append([]string{}, keep...), drop...)...)
	log, logs := observedLogger()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 9, 1, 3, 0, 0, 0, time.UTC))

	report, err := NewCleaner(store, log, WithClock(clock)).Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 355, report.Scanned)
	assert.Equal(t, 150, report.Kept)
	assert.Equal(t, 205, report.Targeted)
	assert.Equal(t, int64(205), report.Deleted)
	assert.Equal(t, 3, report.Batches)
	assert.Equal(t, clock.Now(), report.StartedAt)

	require.Len(t, store.deletes, 3)
	assert.Len(t, store.deletes[0], 100)
	assert.Len(t, store.deletes[2], 5)

	remaining := store.remaining()
	sort.Strings(keep)
	assert.Equal(t, keep, remaining)

	assert.Equal(t, 3, logs.FilterMessage("deleted batch").Len())
	final := logs.FilterMessage("borough cleanup finished").All()
	require.Len(t, final, 1)
	assert.Equal(t, int64(205), final[0].ContextMap()["deleted"])
}

func TestRun_IsIdempotent(t *testing.T) {
	store := newMemStore(append(nycDBNs(40), nonNYCDBNs(12)...)...)
	cleaner := NewCleaner(store, logger.NewTestLogger(t))

	first, err := cleaner.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, int64(12), first.Deleted)
	callsAfterFirst := store.calls

	second, err := cleaner.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Zero(t, second.Deleted)
	assert.Zero(t, second.Targeted)
	assert.Zero(t, second.Batches)
	assert.Equal(t, callsAfterFirst, store.calls, "second run issues no deletes")
	assert.Len(t, store.remaining(), 40)
}

func TestRun_CustomBatchSize(t *testing.T) {
	store := newMemStore(nonNYCDBNs(10)...)

	report, err := NewCleaner(store, logger.NewNoOpLogger(), WithBatchSize(3)).Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Batches)
	assert.Equal(t, int64(10), report.Deleted)
	for _, batch := range store.deletes {
		assert.LessOrEqual(t, len(batch), 3)
	}
}

func TestRun_DryRun(t *testing.T) {
	drop := nonNYCDBNs(7)
	store := newMemStore(append(nycDBNs(5), drop...)...)
	notifier := &fakeNotifier{}

	report, err := NewCleaner(store, logger.NewTestLogger(t), WithNotifier(notifier)).Run(context.Background(), true)
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 7, report.Targeted)
	assert.Zero(t, report.Deleted)
	assert.ElementsMatch(t, drop, report.Targets)
	assert.Zero(t, store.calls)
	assert.Len(t, store.remaining(), 12)
	assert.Empty(t, notifier.subjects)
}

// rowStore lists rows exactly as given, duplicates included.
type rowStore struct{ rows []string }

func (s rowStore) ListSchoolDBNs(context.Context) ([]string, error) { return s.rows, nil }

func (s rowStore) DeleteSchools(_ context.Context, dbns []string) (int64, error) {
	return int64(len(dbns)), nil
}

func TestRun_CountsDuplicateRows(t *testing.T) {
	store := rowStore{rows: []string{"02M158", "75K141", "75K141", "31R456", "84X123", "02M158"}}

	report, err := NewCleaner(store, logger.NewNoOpLogger()).Run(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, 6, report.Scanned)
	assert.Equal(t, 2, report.Targeted)
	assert.Equal(t, 3, report.Kept)
	assert.Equal(t, []string{"75K141", "84X123"}, report.Targets)
}

func TestRun_AbortsOnFailedBatchAndResumes(t *testing.T) {
	store := newMemStore(append(nycDBNs(20), nonNYCDBNs(250)...)...)
	store.failOn = 2
	notifier := &fakeNotifier{}
	cleaner := NewCleaner(store, logger.NewTestLogger(t), WithNotifier(notifier))

	report, err := cleaner.Run(context.Background(), false)
	require.Error(t, err)

	stdErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeCleanupBatchFailed, stdErr.Code)
	assert.Equal(t, 2, stdErr.Metadata["batch"])
	assert.Contains(t, err.Error(), "connection reset by peer")

	assert.Equal(t, int64(100), report.Deleted, "first batch stays deleted")
	assert.Equal(t, 1, report.Batches)
	assert.Equal(t, 2, store.calls, "third batch never attempted")
	assert.Len(t, store.remaining(), 20+150)
	assert.Equal(t, []string{"Borough cleanup aborted"}, notifier.subjects)

	store.failOn = 0
	resumed, err := cleaner.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, int64(150), resumed.Deleted)
	assert.Len(t, store.remaining(), 20)
}

func TestRun_CanceledContext(t *testing.T) {
	store := newMemStore(nonNYCDBNs(5)...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCleaner(store, logger.NewNoOpLogger()).Run(ctx, false)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, store.calls)
}

func TestRun_NotifiesSummary(t *testing.T) {
	store := newMemStore(append(nycDBNs(3), nonNYCDBNs(2)...)...)
	notifier := &fakeNotifier{}

	_, err := NewCleaner(store, logger.NewNoOpLogger(), WithNotifier(notifier)).Run(context.Background(), false)
	require.NoError(t, err)

	require.Equal(t, []string{"Borough cleanup finished"}, notifier.subjects)
	assert.Contains(t, notifier.messages[0], "scanned=5 kept=3 targeted=2 deleted=2 batches=1")
}

// ==========================
// Cache invalidation
// ==========================

func TestRun_InvalidatesCachedScores(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	require.NoError(t, mr.Set(database.ScoreCacheKey("84X123"), `{"score":70}`))
	require.NoError(t, mr.Set(database.ScoreCacheKey("02M158"), `{"score":90}`))

	store := newMemStore("84X123", "02M158")
	cleaner := NewCleaner(store, logger.NewTestLogger(t), WithCacheInvalidator(NewRedisInvalidator(rdb)))

	_, err = cleaner.Run(context.Background(), false)
	require.NoError(t, err)

	assert.False(t, mr.Exists(database.ScoreCacheKey("84X123")))
	assert.True(t, mr.Exists(database.ScoreCacheKey("02M158")))
}

func TestRun_CacheFailureIsBestEffort(t *testing.T) {
	store := newMemStore(nonNYCDBNs(3)...)
	inv := &failingInvalidator{}
	log, logs := observedLogger()

	report, err := NewCleaner(store, log, WithCacheInvalidator(inv)).Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, int64(3), report.Deleted)
	assert.Equal(t, 1, inv.calls)
	assert.Equal(t, 1, logs.FilterMessage("score cache invalidation failed").Len())
}

// ==========================
// Against the SQL store
// ==========================

func TestRun_WithSchoolStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"dbn"}).
		AddRow("02M158").
		AddRow("31R456").
		AddRow("75K141").
		AddRow("84X123").
		AddRow("99Q001")
	mock.ExpectQuery(`SELECT dbn FROM schools ORDER BY dbn`).WillReturnRows(rows)
	mock.ExpectExec(`DELETE FROM schools WHERE dbn = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM schools WHERE dbn = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	cleaner := NewCleaner(database.NewSchoolStore(db), logger.NewTestLogger(t), WithBatchSize(2))

	report, err := cleaner.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Scanned)
	assert.Equal(t, 2, report.Kept)
	assert.Equal(t, int64(3), report.Deleted)
	assert.Equal(t, 2, report.Batches)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_ListFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT dbn FROM schools`).WillReturnError(errors.New("database is down"))

	_, err = NewCleaner(database.NewSchoolStore(db), logger.NewNoOpLogger()).Run(context.Background(), false)
	require.Error(t, err)

	stdErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeQueryExecutionFailed, stdErr.Code)
}
