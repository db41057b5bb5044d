package delivery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cavg-team/go-wearable/pkg/protocol"
)

func testStore(t *testing.T) *OfflineStore {
	t.Helper()
	store, err := NewOfflineStore(filepath.Join(t.TempDir(), "queue.jsonl"))
	if err != nil {
		t.Fatalf("NewOfflineStore: %v", err)
	}
	return store
}

func event(id, behavior string) protocol.EventData {
	return protocol.EventData{
		ID:        id,
		Timestamp: "2026-08-28T10:00:00Z",
		SensorID:  "wearable_001",
		Behavior:  behavior,
	}
}

func TestOfflineStoreRoundTripPreservesOrder(t *testing.T) {
	store := testStore(t)

	for _, ev := range []protocol.EventData{event("1", "fall"), event("2", "turn"), event("3", "shout")} {
		if err := store.Append(ev); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, _, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("loaded %d events, want 3", len(got))
	}
	for i, want := range []string{"fall", "turn", "shout"} {
		if got[i].Behavior != want {
			t.Errorf("event %d behavior = %q, want %q", i, got[i].Behavior, want)
		}
	}
}

func TestOfflineStoreEmptyWhenMissing(t *testing.T) {
	store := testStore(t)
	got, consumed, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 || consumed != 0 {
		t.Fatalf("expected empty queue, got %d events at %d bytes", len(got), consumed)
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d, want 0", store.Len())
	}
}

func TestOfflineStoreReplacePrefixKeepsRemainder(t *testing.T) {
	store := testStore(t)
	all := []protocol.EventData{event("1", "fall"), event("2", "turn"), event("3", "shout")}
	for _, ev := range all {
		if err := store.Append(ev); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	_, consumed, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Simulate a replay that delivered the first event only.
	if err := store.ReplacePrefix(all[1:], consumed); err != nil {
		t.Fatalf("ReplacePrefix: %v", err)
	}

	got, _, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d events, want 2", len(got))
	}
	if got[0].ID != "2" || got[1].ID != "3" {
		t.Errorf("remainder = [%s %s], want [2 3]", got[0].ID, got[1].ID)
	}
}

func TestOfflineStoreReplacePrefixEmptyTruncates(t *testing.T) {
	store := testStore(t)
	if err := store.Append(event("1", "fall")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	_, consumed, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.ReplacePrefix(nil, consumed); err != nil {
		t.Fatalf("ReplacePrefix: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d after truncate, want 0", store.Len())
	}
	if _, err := os.Stat(store.path); !os.IsNotExist(err) {
		t.Error("expected queue file removed after truncate")
	}
}

func TestOfflineStoreKeepsEventsAppendedDuringReplay(t *testing.T) {
	store := testStore(t)
	for _, ev := range []protocol.EventData{event("old1", "turn"), event("old2", "turn")} {
		if err := store.Append(ev); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	// Replay loads its snapshot, then the publish path appends while the
	// link is failing, then the replay re-persists its unsent remainder.
	loaded, consumed, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Append(event("new-during-replay", "fall")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.ReplacePrefix(loaded[1:], consumed); err != nil {
		t.Fatalf("ReplacePrefix: %v", err)
	}

	got, _, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("queue holds %d events, want 2", len(got))
	}
	if got[0].ID != "old2" || got[1].ID != "new-during-replay" {
		t.Errorf("queue = [%s %s], want [old2 new-during-replay]", got[0].ID, got[1].ID)
	}
}

func TestOfflineStoreFullDrainKeepsAppendedSuffix(t *testing.T) {
	store := testStore(t)
	if err := store.Append(event("old1", "turn")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	_, consumed, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Append(event("new-during-replay", "fall")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	// Every loaded event was delivered; only the new arrival may remain.
	if err := store.ReplacePrefix(nil, consumed); err != nil {
		t.Fatalf("ReplacePrefix: %v", err)
	}

	got, _, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got[0].ID != "new-during-replay" {
		t.Fatalf("queue = %+v, want only the event appended during replay", got)
	}
}

func TestOfflineStoreSkipsMalformedLines(t *testing.T) {
	store := testStore(t)
	if err := store.Append(event("1", "fall")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	f, err := os.OpenFile(store.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f.WriteString("{corrupt\n")
	f.Close()

	if err := store.Append(event("2", "turn")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, _, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d events, want 2 with the corrupt line skipped", len(got))
	}
	if got[0].ID != "1" || got[1].ID != "2" {
		t.Errorf("events = [%s %s], want [1 2]", got[0].ID, got[1].ID)
	}
}
