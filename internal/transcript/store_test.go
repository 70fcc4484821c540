package transcript

import (
	"fmt"
	"sync"
	"testing"
)

func TestStore_AppendAssignsIncreasingSequence(t *testing.T) {
	store := NewStore(10)

	first := store.Append(RoleAI, "Welcome.")
	second := store.Append(RoleUser, "Hello.")

	if first.Sequence != 1 || second.Sequence != 2 {
		t.Fatalf("expected sequences 1 and 2, got %d and %d", first.Sequence, second.Sequence)
	}

	all := store.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
	if all[0].Speaker != RoleAI || all[1].Speaker != RoleUser {
		t.Fatalf("unexpected speakers: %+v", all)
	}
	if all[0].At.IsZero() {
		t.Fatal("expected entry timestamp to be set")
	}
}

func TestStore_EvictsOldestPastCapacity(t *testing.T) {
	store := NewStore(DefaultCapacity)

	for i := 0; i < 520; i++ {
		store.Append(RoleUser, fmt.Sprintf("answer %d", i))
	}

	all := store.All()
	if len(all) != DefaultCapacity {
		t.Fatalf("expected %d entries, got %d", DefaultCapacity, len(all))
	}
	if all[0].Text != "answer 20" {
		t.Fatalf("expected oldest retained entry to be answer 20, got %q", all[0].Text)
	}
	if all[len(all)-1].Text != "answer 519" {
		t.Fatalf("expected newest entry last, got %q", all[len(all)-1].Text)
	}
	for i := 1; i < len(all); i++ {
		if all[i].Sequence <= all[i-1].Sequence {
			t.Fatalf("sequence not strictly increasing at %d: %d then %d", i, all[i-1].Sequence, all[i].Sequence)
		}
	}
	if all[0].Sequence != 21 {
		t.Fatalf("expected sequence numbers to keep counting past eviction, got %d", all[0].Sequence)
	}
}

func TestStore_AllReturnsCopy(t *testing.T) {
	store := NewStore(3)
	store.Append(RoleAI, "one")

	all := store.All()
	all[0].Text = "mutated"

	if got := store.All()[0].Text; got != "one" {
		t.Fatalf("expected stored entry to be unchanged, got %q", got)
	}
}

func TestStore_DefaultCapacityWhenInvalid(t *testing.T) {
	store := NewStore(0)
	if store.Cap() != DefaultCapacity {
		t.Fatalf("expected default capacity %d, got %d", DefaultCapacity, store.Cap())
	}
}

func TestStore_ConcurrentAppend(t *testing.T) {
	store := NewStore(1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				store.Append(RoleUser, "x")
			}
		}()
	}
	wg.Wait()

	all := store.All()
	if len(all) != 500 {
		t.Fatalf("expected 500 entries, got %d", len(all))
	}
	for i := range all {
		if all[i].Sequence != uint64(i+1) {
			t.Fatalf("expected dense sequence at %d, got %d", i, all[i].Sequence)
		}
	}
}
