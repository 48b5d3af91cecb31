package events

import (
	"context"
	"testing"
	"time"

	"clarion/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore("", 25*time.Second)
	if err != nil {
		t.Fatalf("Failed to open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func clickEvent(userID, sourceID string) core.UserEvent {
	return core.UserEvent{
		UserID:    userID,
		EventType: core.EventSourceClicked,
		SourceID:  sourceID,
		QueryID:   "q1",
		Meta:      &core.EventMeta{Features: core.NeutralFeatures()},
	}
}

func TestIngestAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Ingest(ctx, clickEvent("alice", "src1")); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if err := store.Ingest(ctx, clickEvent("alice", "src2")); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	list, err := store.ListByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(list))
	}
	if list[0].EventType != core.EventSourceClicked {
		t.Errorf("Expected event type preserved, got %s", list[0].EventType)
	}
	if list[0].Meta == nil || list[0].Meta.Features == nil {
		t.Error("Expected meta features round-tripped")
	}
	if list[0].Timestamp.IsZero() {
		t.Error("Expected default timestamp assigned")
	}
}

func TestIngestDropsMalformedEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Missing user ID.
	if err := store.Ingest(ctx, core.UserEvent{EventType: core.EventSourceClicked}); err != nil {
		t.Errorf("Expected malformed event dropped without error, got %v", err)
	}
	// Unknown event type.
	if err := store.Ingest(ctx, core.UserEvent{UserID: "alice", EventType: "NOT_A_THING"}); err != nil {
		t.Errorf("Expected unknown event type dropped without error, got %v", err)
	}

	count, err := store.CountByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("CountByUser failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no events stored, got %d", count)
	}
}

func TestClickEventFeedsBandit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Ingest(ctx, clickEvent("alice", "src1")); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	scores := store.Bandit("alice").Scores()
	if len(scores) != 5 {
		t.Fatalf("Expected 5 arms with evidence after click, got %d", len(scores))
	}
	for arm, score := range scores {
		if score <= 0.5 {
			t.Errorf("Arm %s: expected score above prior mean after click, got %f", arm, score)
		}
	}
}

func TestHoverEventDoesNotFeedBandit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Ingest(ctx, core.UserEvent{
		UserID:    "alice",
		EventType: core.EventCitationHovered,
		Meta:      &core.EventMeta{Features: core.NeutralFeatures()},
	})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if scores := store.Bandit("alice").Scores(); len(scores) != 0 {
		t.Errorf("Expected hover to leave the bandit untouched, got %v", scores)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Ingest(ctx, clickEvent("alice", "src1")); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if scores := store.Bandit("bob").Scores(); len(scores) != 0 {
		t.Errorf("Expected bob's bandit empty, got %v", scores)
	}
	bobEvents, err := store.ListByUser(ctx, "bob")
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(bobEvents) != 0 {
		t.Errorf("Expected no events for bob, got %d", len(bobEvents))
	}
}

func TestResetWipesUserState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Ingest(ctx, clickEvent("alice", "src1")); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if err := store.Ingest(ctx, clickEvent("bob", "src2")); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if err := store.Reset(ctx, "alice"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	count, err := store.CountByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("CountByUser failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected alice's events deleted, got %d", count)
	}
	if scores := store.Bandit("alice").Scores(); len(scores) != 0 {
		t.Errorf("Expected alice's bandit reset, got %v", scores)
	}

	// Bob is untouched.
	bobCount, err := store.CountByUser(ctx, "bob")
	if err != nil {
		t.Fatalf("CountByUser failed: %v", err)
	}
	if bobCount != 1 {
		t.Errorf("Expected bob's events intact, got %d", bobCount)
	}
}

func TestTotalEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, user := range []string{"alice", "bob", "carol"} {
		if err := store.Ingest(ctx, clickEvent(user, "src")); err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
	}

	total, err := store.TotalEvents(ctx)
	if err != nil {
		t.Fatalf("TotalEvents failed: %v", err)
	}
	if total != 3 {
		t.Errorf("Expected 3 total events, got %d", total)
	}
}

func TestBanditIsCreatedOnDemandAndReused(t *testing.T) {
	store := newTestStore(t)

	first := store.Bandit("alice")
	second := store.Bandit("alice")
	if first != second {
		t.Error("Expected the same bandit instance across calls")
	}
}
