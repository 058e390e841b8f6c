package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-chatbot/internal/models"
)

func TestSnapshotBoundsHistory(t *testing.T) {
	store := NewStore()
	id := store.Snapshot(0).ID
	for i := 0; i < 10; i++ {
		require.True(t, store.AppendTurn(id, models.Turn{User: fmt.Sprintf("q%d", i), Bot: "a"}))
	}

	snap := store.Snapshot(3)
	require.Len(t, snap.History, 3)
	assert.Equal(t, "q7", snap.History[0].User)
	assert.Equal(t, "q9", snap.History[2].User)

	assert.Empty(t, store.Snapshot(0).History)
	assert.Len(t, store.History(0), 10)

	recent := snap.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "q8", recent[0].User)
	assert.Len(t, snap.Recent(50), 3)
	assert.Empty(t, snap.Recent(0))
}

func TestSnapshotIsolatedFromLaterAppends(t *testing.T) {
	store := NewStore()
	id := store.Snapshot(0).ID
	store.AppendTurn(id, models.Turn{User: "first", Bot: "one"})

	snap := store.Snapshot(50)
	store.AppendTurn(id, models.Turn{User: "second", Bot: "two"})

	assert.Len(t, snap.History, 1)
	assert.Len(t, store.History(50), 2)
}

func TestResetStartsNewSession(t *testing.T) {
	store := NewStore()
	oldID := store.Snapshot(0).ID
	store.SetDocument(Document{Text: "hello", PageCount: 1, SourceName: "a.pdf"})
	store.AppendTurn(oldID, models.Turn{User: "q", Bot: "a"})

	newID := store.Reset()
	assert.NotEqual(t, oldID, newID)

	snap := store.Snapshot(50)
	assert.Empty(t, snap.History)
	assert.Empty(t, snap.Document.Text)
	assert.False(t, snap.HasIndex())

	// a late answer for the replaced session is dropped
	assert.False(t, store.AppendTurn(oldID, models.Turn{User: "late", Bot: "x"}))
	assert.Empty(t, store.History(0))
}

func TestConcurrentAppends(t *testing.T) {
	store := NewStore()
	id := store.Snapshot(0).ID

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.AppendTurn(id, models.Turn{User: fmt.Sprint(i)})
			_ = store.Snapshot(5)
		}(i)
	}
	wg.Wait()
	assert.Len(t, store.History(0), 50)
}
