package variantlib

import (
	"errors"
	"testing"
)

func fallbackCandidate(id, name string, kind Kind, score float64) ScoredVariant {
	return ScoredVariant{
		Variant: &ContentVariant{ID: id, Name: name, Kind: kind},
		Score:   score,
	}
}

func TestFallbackSkipsFailedContent(t *testing.T) {
	r := NewResolver(NewMemoryLedger(), NewDepGraph())
	got, err := r.Fallback([]ScoredVariant{
		fallbackCandidate("v-high", "movie", KindHigh, 9.0),
		fallbackCandidate("v-normal", "movie", KindNormal, 7.0),
	}, "v-high", "client-1", "movie")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "v-normal" {
		t.Fatalf("expected v-normal, got %s", got.ID)
	}
}

func TestFallbackSkipsOtherAssets(t *testing.T) {
	r := NewResolver(NewMemoryLedger(), NewDepGraph())
	got, err := r.Fallback([]ScoredVariant{
		fallbackCandidate("other", "documentary", KindHigh, 9.5),
		fallbackCandidate("v-normal", "movie", KindNormal, 7.0),
	}, "v-high", "client-1", "movie")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "v-normal" {
		t.Fatalf("expected v-normal, got %s", got.ID)
	}
}

func TestFallbackSkipsUnreliableHistory(t *testing.T) {
	ledger := NewMemoryLedger()
	// v-normal failed for this client once out of two attempts: 50%,
	// at the threshold, excluded.
	ledger.Append(HistoryRecord{ContentID: "v-normal", ClientID: "client-1", Success: false})
	ledger.Append(HistoryRecord{ContentID: "v-normal", ClientID: "client-1", Success: true})
	// Another client's failures must not leak in.
	ledger.Append(HistoryRecord{ContentID: "v-low", ClientID: "client-2", Success: false})

	r := NewResolver(ledger, NewDepGraph())
	got, err := r.Fallback([]ScoredVariant{
		fallbackCandidate("v-normal", "movie", KindNormal, 7.0),
		fallbackCandidate("v-low", "movie", KindLow, 5.0),
	}, "v-high", "client-1", "movie")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "v-low" {
		t.Fatalf("expected v-low, got %s", got.ID)
	}
}

func TestFallbackRequiresDependencies(t *testing.T) {
	ledger := NewMemoryLedger()
	graph := NewDepGraph()
	graph.AddEdge("v-normal", "codec-pack")
	graph.AddEdge("v-low", "codec-pack")
	// Only client-1 has the codec pack.
	ledger.Append(HistoryRecord{ContentID: "codec-pack", ClientID: "client-1", Success: true})

	r := NewResolver(ledger, graph)

	got, err := r.Fallback([]ScoredVariant{
		fallbackCandidate("v-normal", "movie", KindNormal, 7.0),
	}, "v-high", "client-1", "movie")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "v-normal" {
		t.Fatalf("expected v-normal for client-1, got %s", got.ID)
	}

	_, err = r.Fallback([]ScoredVariant{
		fallbackCandidate("v-low", "movie", KindLow, 5.0),
	}, "v-high", "client-2", "movie")
	if !errors.Is(err, ErrNoFallbackAvailable) {
		t.Fatalf("client-2 lacks the dependency, expected ErrNoFallbackAvailable, got %v", err)
	}
}

func TestFallbackOrderedByScore(t *testing.T) {
	r := NewResolver(NewMemoryLedger(), NewDepGraph())
	// Candidates arrive unsorted; the highest surviving score must win.
	got, err := r.Fallback([]ScoredVariant{
		fallbackCandidate("v-low", "movie", KindLow, 5.0),
		fallbackCandidate("v-normal", "movie", KindNormal, 7.0),
	}, "v-high", "client-1", "movie")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "v-normal" {
		t.Fatalf("expected highest-scored survivor v-normal, got %s", got.ID)
	}
}

func TestFallbackExhausted(t *testing.T) {
	r := NewResolver(NewMemoryLedger(), NewDepGraph())
	_, err := r.Fallback([]ScoredVariant{
		fallbackCandidate("v-high", "movie", KindHigh, 9.0),
	}, "v-high", "client-1", "movie")
	if !errors.Is(err, ErrNoFallbackAvailable) {
		t.Fatalf("expected ErrNoFallbackAvailable, got %v", err)
	}
}
