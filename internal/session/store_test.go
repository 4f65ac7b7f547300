package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
)

func turn(user, assistant string) Turn {
	return Turn{UserText: user, AssistantText: assistant}
}

func TestStore_AppendAndHistoryOrder(t *testing.T) {
	s := NewStore(10)
	s.AppendTurn("u1", turn("q1", "a1"))
	s.AppendTurn("u1", turn("q2", "a2"))
	s.AppendTurn("u1", turn("q3", "a3"))

	hist := s.History("u1")
	if len(hist) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(hist))
	}
	for i, want := range []string{"q1", "q2", "q3"} {
		if hist[i].UserText != want {
			t.Fatalf("turn %d: got %q want %q (oldest first)", i, hist[i].UserText, want)
		}
	}
	if hist[0].At.IsZero() {
		t.Fatal("AppendTurn should stamp At")
	}
}

func TestStore_UnknownUserHasEmptyHistory(t *testing.T) {
	s := NewStore(10)
	if got := s.History("nobody"); len(got) != 0 {
		t.Fatalf("expected empty history, got %d turns", len(got))
	}
	if got := s.Len("nobody"); got != 0 {
		t.Fatalf("expected zero length, got %d", got)
	}
}

func TestStore_EvictsOldestPastCap(t *testing.T) {
	s := NewStore(3)
	for i := 1; i <= 5; i++ {
		s.AppendTurn("u1", turn(fmt.Sprintf("q%d", i), "a"))
	}
	hist := s.History("u1")
	if len(hist) != 3 {
		t.Fatalf("expected cap of 3, got %d", len(hist))
	}
	for i, want := range []string{"q3", "q4", "q5"} {
		if hist[i].UserText != want {
			t.Fatalf("turn %d: got %q want %q", i, hist[i].UserText, want)
		}
	}
}

func TestStore_HistoryIsIsolatedFromCallers(t *testing.T) {
	s := NewStore(10)
	in := turn("q1", "a1")
	in.ToolCalls = []ToolCall{{
		Seq:       0,
		ID:        "t1",
		Name:      "search_documentation",
		Arguments: json.RawMessage(`{"query":"x"}`),
		Result:    "snippet",
	}}
	s.AppendTurn("u1", in)

	// Mutating the input after append must not reach the store.
	in.UserText = "mutated"
	in.ToolCalls[0].Result = "mutated"
	in.ToolCalls[0].Arguments[2] = 'X'

	hist := s.History("u1")
	if hist[0].UserText != "q1" || hist[0].ToolCalls[0].Result != "snippet" {
		t.Fatalf("store shares memory with caller input: %+v", hist[0])
	}
	if string(hist[0].ToolCalls[0].Arguments) != `{"query":"x"}` {
		t.Fatalf("arguments aliased: %s", hist[0].ToolCalls[0].Arguments)
	}

	// Mutating a returned copy must not reach the store either.
	hist[0].AssistantText = "scribbled"
	hist[0].ToolCalls[0].Name = "scribbled"
	again := s.History("u1")
	if again[0].AssistantText != "a1" || again[0].ToolCalls[0].Name != "search_documentation" {
		t.Fatalf("History returns aliased turns: %+v", again[0])
	}
}

func TestStore_UsersAreIndependent(t *testing.T) {
	s := NewStore(10)
	s.AppendTurn("u1", turn("q-one", "a"))
	s.AppendTurn("u2", turn("q-two", "a"))

	if got := s.History("u1"); len(got) != 1 || got[0].UserText != "q-one" {
		t.Fatalf("u1 history polluted: %+v", got)
	}
	if got := s.History("u2"); len(got) != 1 || got[0].UserText != "q-two" {
		t.Fatalf("u2 history polluted: %+v", got)
	}
}

func TestStore_ConcurrentAppends(t *testing.T) {
	s := NewStore(100)
	var wg sync.WaitGroup
	for u := 0; u < 4; u++ {
		userID := fmt.Sprintf("u%d", u)
		for i := 0; i < 25; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.AppendTurn(userID, turn("q", "a"))
				_ = s.History(userID)
			}()
		}
	}
	wg.Wait()
	for u := 0; u < 4; u++ {
		userID := fmt.Sprintf("u%d", u)
		if got := s.Len(userID); got != 25 {
			t.Fatalf("%s: expected 25 turns, got %d", userID, got)
		}
	}
}
