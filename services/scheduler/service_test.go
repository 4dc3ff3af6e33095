package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingPruner struct {
	calls atomic.Int64
	err   error
}

func (p *countingPruner) Prune() (int64, error) {
	p.calls.Add(1)
	return 2, p.err
}

func TestStartAndStopAreIdempotent(t *testing.T) {
	svc := NewService(&countingPruner{}, time.Hour)

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("second start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := svc.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := svc.Stop(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestRunPruneLogsAndSwallowsErrors(t *testing.T) {
	pruner := &countingPruner{err: errors.New("locked")}
	svc := NewService(pruner, time.Hour)

	// Must not panic or propagate.
	svc.runPrune()
	svc.runPrune()

	if n := pruner.calls.Load(); n != 2 {
		t.Fatalf("prune calls = %d", n)
	}
}
