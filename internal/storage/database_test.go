package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/spacedrep/internal/domain"
	"github.com/conorfennell/spacedrep/internal/sm2"
)

var testNow = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testCard(id, userID, hash string) domain.Card {
	return domain.Card{
		ID:        id,
		UserID:    userID,
		Hash:      hash,
		Front:     "front " + id,
		Back:      "back " + id,
		CreatedAt: testNow,
		CardState: domain.NewCardState(testNow),
	}
}

func TestInsertAndLoad(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	card := testCard("c1", "alice", "h1")
	card.Context = "geography"
	require.NoError(t, db.InsertCard(ctx, card))

	got, err := db.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, "front c1", got.Front)
	assert.Equal(t, "back c1", got.Back)
	assert.Equal(t, "geography", got.Context)
	assert.Equal(t, domain.DefaultEaseFactor, got.EaseFactor)
	assert.Equal(t, 0, got.Interval)
	assert.Equal(t, 0, got.Repetitions)
	assert.Nil(t, got.LastReviewDate)
	assert.True(t, got.NextReviewDate.Equal(testNow))
	assert.EqualValues(t, 1, got.Version)
	assert.False(t, got.SourceID.Valid)

	_, err = db.Load(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInsertDuplicateContent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.InsertCard(ctx, testCard("c1", "alice", "same")))
	err := db.InsertCard(ctx, testCard("c2", "alice", "same"))
	assert.ErrorIs(t, err, domain.ErrConflict)

	// Another user may own the same content.
	assert.NoError(t, db.InsertCard(ctx, testCard("c3", "bob", "same")))

	found, err := db.FindCardByHash(ctx, "bob", "same")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "c3", found.ID)

	missing, err := db.FindCardByHash(ctx, "carol", "same")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func reviewLog(card domain.Card, next domain.CardState) domain.ReviewLog {
	return domain.ReviewLog{
		CardID:            card.ID,
		UserID:            card.UserID,
		Response:          domain.Good,
		Quality:           4,
		EaseBefore:        card.EaseFactor,
		EaseAfter:         next.EaseFactor,
		IntervalBefore:    card.Interval,
		IntervalAfter:     next.Interval,
		RepetitionsBefore: card.Repetitions,
		RepetitionsAfter:  next.Repetitions,
		ReviewedAt:        testNow,
	}
}

func TestSaveBumpsVersionAndLogsReview(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, db.InsertCard(ctx, testCard("c1", "alice", "h1")))

	card, err := db.Load(ctx, "c1")
	require.NoError(t, err)

	reviewed := testNow
	next := domain.CardState{
		EaseFactor:     2.5,
		Interval:       1,
		Repetitions:    1,
		NextReviewDate: testNow.AddDate(0, 0, 1),
		LastReviewDate: &reviewed,
	}
	log := reviewLog(card, next)
	card.CardState = next
	require.NoError(t, db.Save(ctx, card, log))

	got, err := db.Load(ctx, "c1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.Version)
	assert.Equal(t, 1, got.Interval)
	assert.Equal(t, 1, got.Repetitions)
	require.NotNil(t, got.LastReviewDate)
	assert.True(t, got.LastReviewDate.Equal(testNow))
	assert.True(t, got.NextReviewDate.Equal(testNow.AddDate(0, 0, 1)))

	logs, err := db.ReviewLogs(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.Good, logs[0].Response)
	assert.Equal(t, 4, logs[0].Quality)
	assert.Equal(t, 0, logs[0].IntervalBefore)
	assert.Equal(t, 1, logs[0].IntervalAfter)
	assert.True(t, logs[0].ReviewedAt.Equal(testNow))
}

func TestSaveRoundTripsLongestInterval(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, db.InsertCard(ctx, testCard("c1", "alice", "h1")))

	card, err := db.Load(ctx, "c1")
	require.NoError(t, err)

	reviewed := testNow
	next := domain.CardState{
		EaseFactor:     2.6,
		Interval:       sm2.CeilingIntervalDays,
		Repetitions:    30,
		NextReviewDate: sm2.NextReviewDate(testNow, sm2.CeilingIntervalDays),
		LastReviewDate: &reviewed,
	}
	log := reviewLog(card, next)
	card.CardState = next
	require.NoError(t, db.Save(ctx, card, log))

	got, err := db.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, sm2.CeilingIntervalDays, got.Interval)
	assert.True(t, got.NextReviewDate.Equal(next.NextReviewDate), "stored %v, loaded %v", next.NextReviewDate, got.NextReviewDate)
	assert.True(t, got.NextReviewDate.After(testNow))
}

func TestSaveStaleVersionConflicts(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, db.InsertCard(ctx, testCard("c1", "alice", "h1")))

	// Two devices read the same state.
	first, err := db.Load(ctx, "c1")
	require.NoError(t, err)
	second, err := db.Load(ctx, "c1")
	require.NoError(t, err)

	first.Interval = 1
	require.NoError(t, db.Save(ctx, first, reviewLog(first, first.CardState)))

	second.Interval = 1
	err = db.Save(ctx, second, reviewLog(second, second.CardState))
	assert.ErrorIs(t, err, domain.ErrConflict)

	// The losing write must not leave a review log behind.
	logs, err := db.ReviewLogs(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	ghost := testCard("ghost", "alice", "h2")
	err = db.Save(ctx, ghost, reviewLog(ghost, ghost.CardState))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListForUserKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	for _, id := range []string{"z", "a", "m"} {
		require.NoError(t, db.InsertCard(ctx, testCard(id, "alice", "hash-"+id)))
	}
	require.NoError(t, db.InsertCard(ctx, testCard("other", "bob", "hash-other")))

	cards, err := db.ListForUser(ctx, "alice")
	require.NoError(t, err)
	var ids []string
	for _, c := range cards {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"z", "a", "m"}, ids)
}

func TestDeleteCard(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, db.InsertCard(ctx, testCard("c1", "alice", "h1")))
	card, err := db.Load(ctx, "c1")
	require.NoError(t, err)
	require.NoError(t, db.Save(ctx, card, reviewLog(card, card.CardState)))

	require.NoError(t, db.Delete(ctx, "c1"))
	_, err = db.Load(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	logs, err := db.ReviewLogs(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, logs)

	assert.ErrorIs(t, db.Delete(ctx, "c1"), domain.ErrNotFound)
}

func TestSources(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	id, err := db.InsertSource(ctx, "alice", "/decks/geo", domain.SourceLocal)
	require.NoError(t, err)
	_, err = db.InsertSource(ctx, "alice", "/decks/geo", domain.SourceLocal)
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = db.InsertSource(ctx, "bob", "https://example.com/decks.git", domain.SourceGit)
	require.NoError(t, err)

	found, err := db.FindSourceByPath(ctx, "alice", "/decks/geo")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, id, found.ID)
	assert.False(t, found.LastScanned.Valid)

	require.NoError(t, db.TouchSource(ctx, id, testNow))
	mine, err := db.ListSources(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.True(t, mine[0].LastScanned.Valid)
	assert.Equal(t, domain.SourceLocal, mine[0].Type)

	all, err := db.AllSources(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, domain.SourceGit, all[1].Type)

	imported := testCard("c1", "alice", "h1")
	imported.SourceID = sql.NullInt64{Int64: id, Valid: true}
	require.NoError(t, db.InsertCard(ctx, imported))
	require.NoError(t, db.InsertCard(ctx, testCard("c2", "alice", "h2")))

	bySource, err := db.ListBySource(ctx, id)
	require.NoError(t, err)
	require.Len(t, bySource, 1)
	assert.Equal(t, "c1", bySource[0].ID)

	assert.ErrorIs(t, db.DeleteSource(ctx, "bob", id), domain.ErrNotFound)
	require.NoError(t, db.DeleteSource(ctx, "alice", id))

	remaining, err := db.ListForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "c2", remaining[0].ID)
}

func TestOpenInMemory(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.InsertCard(context.Background(), testCard("c1", "alice", "h1")))
	_, err = db.Load(context.Background(), "c1")
	assert.NoError(t, err)
}
