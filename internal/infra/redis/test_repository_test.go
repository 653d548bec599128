package redis

import (
	"context"
	"testing"
	"time"

	"quiz-result-service/internal/domain"
	"quiz-result-service/internal/infra/memory"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestTestRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		TestLoader: memory.NewStaticTestLoader(map[string]domain.Test{
			"test-1": sampleTest(),
		}),
	}
	repo := NewTestRepository(client, loader, time.Minute)

	test, err := repo.GetTest(context.Background(), "test-1")
	if err != nil {
		t.Fatalf("get test: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("test:test-1") {
		t.Fatalf("expected cached test key")
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetTest(context.Background(), "test-1")
	if err != nil {
		t.Fatalf("get cached test: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(cached.Results) != len(test.Results) || *cached.Results[0].Conditions[0].Min != 20 {
		t.Fatalf("expected results to survive the round trip, got %+v", cached.Results)
	}

	mr.FastForward(2 * time.Minute)
	_, _ = repo.GetTest(context.Background(), "test-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	memory.TestLoader
	calls int
}

func (l *countingLoader) LoadTest(ctx context.Context, testID string) (domain.Test, error) {
	l.calls++
	return l.TestLoader.LoadTest(ctx, testID)
}

func sampleTest() domain.Test {
	return domain.Test{
		ID:   "test-1",
		Kind: domain.KindPsychology,
		Questions: []domain.Question{
			{
				ID:     "q1",
				Prompt: "Coffee or tea?",
				Choices: []domain.Choice{
					{ID: "c1", Text: "Coffee", Weight: 20},
					{ID: "c2", Text: "Tea", Weight: 5},
				},
			},
		},
		Results: []domain.Result{
			{ID: "bold", Priority: 1, Conditions: []domain.Condition{domain.RangeCondition(domain.Bound(20), nil)}},
			{ID: "calm", Priority: 2, Conditions: []domain.Condition{domain.DefaultCondition()}},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
