package bus

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testArtifact(key string) Artifact {
	return Artifact{
		Image:       image.NewRGBA(image.Rect(0, 0, 1, 1)),
		MetadataURI: "https://meta.example/" + key,
		Mint:        key,
	}
}

func TestNewArtifactQueueDefaultsCapacity(t *testing.T) {
	q := NewArtifactQueue(0)
	if q.Cap() != DefaultQueueCapacity {
		t.Fatalf("Cap() = %d, want %d", q.Cap(), DefaultQueueCapacity)
	}
}

func TestQueueFIFO(t *testing.T) {
	q := NewArtifactQueue(3)

	for _, key := range []string{"a", "b", "c"} {
		if !q.TryPush(testArtifact(key)) {
			t.Fatalf("TryPush(%s) rejected", key)
		}
	}

	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.Pop(context.Background())
		if !ok {
			t.Fatalf("Pop() returned no artifact, want %s", want)
		}
		if got.Key() != want {
			t.Fatalf("Pop() = %s, want %s", got.Key(), want)
		}
	}
}

func TestQueueFullRejectsNewestAndKeepsContents(t *testing.T) {
	q := NewArtifactQueue(2)

	if !q.TryPush(testArtifact("first")) || !q.TryPush(testArtifact("second")) {
		t.Fatal("expected pushes below capacity to succeed")
	}
	if q.TryPush(testArtifact("third")) {
		t.Fatal("expected push on full queue to be rejected")
	}

	stats := q.Stats()
	if stats.Len != 2 || stats.Rejected != 1 || stats.Pushed != 2 {
		t.Fatalf("Stats() = %+v, want len=2 pushed=2 rejected=1", stats)
	}

	first, _ := q.TryPop()
	second, _ := q.TryPop()
	if first.Key() != "first" || second.Key() != "second" {
		t.Fatalf("queue contents changed: got %s, %s", first.Key(), second.Key())
	}
	if _, ok := q.TryPop(); ok {
		t.Fatal("expected rejected artifact to be absent")
	}
}

func TestQueueLengthNeverExceedsCapacity(t *testing.T) {
	const capacity = 5
	q := NewArtifactQueue(capacity)

	var violations atomic.Int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 2000; i++ {
			q.TryPush(testArtifact("p"))
			if q.Len() > capacity {
				violations.Add(1)
			}
		}
	}()

	for c := 0; c < 3; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 300; i++ {
				if _, ok := q.TryPop(); !ok {
					time.Sleep(time.Microsecond)
				}
				if q.Len() > capacity {
					violations.Add(1)
				}
			}
		}()
	}

	wg.Wait()
	if violations.Load() != 0 {
		t.Fatalf("observed %d length violations", violations.Load())
	}

	stats := q.Stats()
	if stats.Pushed+stats.Rejected != 2000 {
		t.Fatalf("pushed+rejected = %d, want 2000", stats.Pushed+stats.Rejected)
	}
	if stats.Pushed-stats.Popped != uint64(stats.Len) {
		t.Fatalf("pushed-popped = %d, len = %d", stats.Pushed-stats.Popped, stats.Len)
	}
}

func TestPopHonoursContext(t *testing.T) {
	q := NewArtifactQueue(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := q.Pop(ctx); ok {
		t.Fatal("expected Pop to fail on canceled context")
	}
}

func TestPopWakesOnPush(t *testing.T) {
	q := NewArtifactQueue(1)

	got := make(chan Artifact, 1)
	go func() {
		artifact, ok := q.Pop(context.Background())
		if ok {
			got <- artifact
		}
	}()

	time.Sleep(20 * time.Millisecond)
	q.TryPush(testArtifact("late"))

	select {
	case artifact := <-got:
		if artifact.Key() != "late" {
			t.Fatalf("Pop() = %s, want late", artifact.Key())
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake after push")
	}
}

func TestCloseKeepsQueuedArtifacts(t *testing.T) {
	q := NewArtifactQueue(2)
	q.TryPush(testArtifact("kept"))
	q.Close()

	if q.TryPush(testArtifact("after-close")) {
		t.Fatal("expected push after close to be rejected")
	}

	artifact, ok := q.Pop(context.Background())
	if !ok || artifact.Key() != "kept" {
		t.Fatalf("Pop() after close = %s, %v; want kept, true", artifact.Key(), ok)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, ok := q.Pop(context.Background()); ok {
			t.Error("expected drained closed queue to report no artifact")
		}
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Pop did not return on closed, drained queue")
	}
}

func TestArtifactKeyFallsBackToMetadataURI(t *testing.T) {
	artifact := Artifact{MetadataURI: "https://meta.example/x"}
	if got := artifact.Key(); got != "https://meta.example/x" {
		t.Fatalf("Key() = %q", got)
	}
}
