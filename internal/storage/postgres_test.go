package storage

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krimson/dig-music/internal/classify"
	"github.com/Krimson/dig-music/internal/session"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestSaveBaseline(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO baseline").
		WithArgs(ts, 42.5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := store.SaveBaseline(context.Background(), 42.5, ts)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadLatestBaseline(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT baseline_pnn50").
		WillReturnRows(sqlmock.NewRows([]string{"baseline_pnn50"}).AddRow(33.3))

	value, ok, err := store.LoadLatestBaseline(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 33.3, value, 0.001)
}

func TestLoadLatestBaselineEmpty(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT baseline_pnn50").
		WillReturnRows(sqlmock.NewRows([]string{"baseline_pnn50"}))

	_, ok, err := store.LoadLatestBaseline(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInsertEvent(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Date(2026, 8, 25, 12, 30, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO events").
		WithArgs(ts, "CHILL", 61.0, "Aphex Twin", "Rhubarb").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	id, err := store.InsertEvent(context.Background(), session.Event{
		TS:         ts,
		Status:     classify.StatusChill,
		PNN50:      61.0,
		ArtistName: "Aphex Twin",
		TrackName:  "Rhubarb",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMostRecentEventTime(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Date(2026, 8, 25, 12, 45, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT ts").
		WillReturnRows(sqlmock.NewRows([]string{"ts"}).AddRow(ts))

	got, ok, err := store.MostRecentEventTime(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, got.Equal(ts))
}

func TestMostRecentEventTimeEmpty(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT ts").
		WillReturnRows(sqlmock.NewRows([]string{"ts"}))

	_, ok, err := store.MostRecentEventTime(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListEvents(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Date(2026, 8, 25, 13, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "ts", "status", "pnn50", "artist_name", "track_name"}).
		AddRow(int64(2), ts, "HYPE", 8.5, "The Prodigy", "Breathe").
		AddRow(int64(1), ts.Add(-time.Minute), "CHILL", 55.0, "Brian Eno", "An Ending")

	mock.ExpectQuery("SELECT id, ts, status").
		WithArgs(10).
		WillReturnRows(rows)

	events, err := store.ListEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, classify.StatusHype, events[0].Status)
	assert.Equal(t, "The Prodigy", events[0].ArtistName)
	assert.Equal(t, classify.StatusChill, events[1].Status)
}

func TestInit(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS baseline").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS events").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_events_ts").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, store.Init(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
