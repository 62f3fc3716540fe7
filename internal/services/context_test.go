package services

import (
	"context"
	"testing"
)

func TestContextHelpersRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = WithBatchID(ctx, "b-1")
	ctx = WithItem(ctx, "a.mp3")
	ctx = WithWorker(ctx, 2)

	if id, ok := BatchIDFromContext(ctx); !ok || id != "b-1" {
		t.Fatalf("batch id = %q (%v)", id, ok)
	}
	if name, ok := ItemFromContext(ctx); !ok || name != "a.mp3" {
		t.Fatalf("item = %q (%v)", name, ok)
	}
	if worker, ok := WorkerFromContext(ctx); !ok || worker != 2 {
		t.Fatalf("worker = %d (%v)", worker, ok)
	}
}

func TestContextHelpersIgnoreEmptyValues(t *testing.T) {
	ctx := context.Background()
	if WithBatchID(ctx, "") != ctx || WithItem(ctx, "") != ctx || WithWorker(ctx, 0) != ctx {
		t.Fatal("expected empty values to leave context unchanged")
	}
	if _, ok := WorkerFromContext(ctx); ok {
		t.Fatal("expected no worker on bare context")
	}
}
