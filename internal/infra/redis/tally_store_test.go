package redis

import (
	"context"
	"errors"
	"sync"
	"testing"

	"quiz-result-service/internal/domain"

	miniredis "github.com/alicebob/miniredis/v2"
)

func balanceQuestion() domain.Question {
	return domain.Question{ID: "b1", Choices: []domain.Choice{{ID: "left"}, {ID: "right"}}}
}

func TestTallyStoreIncrements(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewTallyStore(newClient(mr))
	ctx := context.Background()

	tally, err := store.FetchVoteTally(ctx, balanceQuestion())
	if err != nil {
		t.Fatalf("fetch empty: %v", err)
	}
	if tally.Total() != 0 || tally.A.ChoiceID != "left" || tally.B.ChoiceID != "right" {
		t.Fatalf("expected empty tally with choice ids, got %+v", tally)
	}

	mr.HSet("balance:b1:votes", "left", "3", "right", "7")
	tally, err = store.IncrementChoice(ctx, balanceQuestion(), "left")
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if tally.A.Count != 4 || tally.B.Count != 7 {
		t.Fatalf("expected 4/7, got %+v", tally)
	}

	if _, err := store.IncrementChoice(ctx, balanceQuestion(), "middle"); !errors.Is(err, domain.ErrChoiceNotFound) {
		t.Fatalf("expected unknown choice rejection, got %v", err)
	}
}

func TestTallyStoreConcurrentVoters(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewTallyStore(newClient(mr))
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.IncrementChoice(context.Background(), balanceQuestion(), "right"); err != nil {
				t.Errorf("increment: %v", err)
			}
		}()
	}
	wg.Wait()

	tally, err := store.FetchVoteTally(context.Background(), balanceQuestion())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if tally.B.Count != 40 || tally.A.Count != 0 {
		t.Fatalf("expected 0/40, got %+v", tally)
	}
}

func TestTallyStoreRejectsMalformedCounts(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	mr.HSet("balance:b1:votes", "left", "many")
	store := NewTallyStore(newClient(mr))
	if _, err := store.FetchVoteTally(context.Background(), balanceQuestion()); err == nil {
		t.Fatalf("expected parse error")
	}
}
