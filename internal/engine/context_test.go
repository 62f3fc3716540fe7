package engine_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"partmix/internal/engine"
	"partmix/internal/engine/enginetest"
	"partmix/internal/mix"
	"partmix/internal/services"
)

func soloJob(name string) mix.Job {
	return mix.BuildJobs([]mix.Item{{Name: name, Payload: []byte("pcm")}}, mix.DefaultParams())[0]
}

func newContext(t *testing.T, eng *enginetest.Engine) *engine.Context {
	t.Helper()
	ectx, err := engine.New(context.Background(), eng, 1, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ectx
}

func collect(progress <-chan int) <-chan []int {
	done := make(chan []int, 1)
	go func() {
		var seen []int
		for p := range progress {
			seen = append(seen, p)
		}
		done <- seen
	}()
	return done
}

func TestTerminateTwiceIsNoop(t *testing.T) {
	eng := &enginetest.Engine{}
	ectx := newContext(t, eng)

	if err := ectx.Terminate(); err != nil {
		t.Fatalf("first Terminate: %v", err)
	}
	if err := ectx.Terminate(); err != nil {
		t.Fatalf("second Terminate: %v", err)
	}
	if got := eng.Handles()[0].Terminations(); got != 1 {
		t.Fatalf("expected handle terminated once, got %d", got)
	}
	if ectx.State() != engine.StateTerminated {
		t.Fatalf("unexpected state %s", ectx.State())
	}
}

func TestRunProducesOutputAndReturnsToIdle(t *testing.T) {
	eng := &enginetest.Engine{}
	ectx := newContext(t, eng)
	job := soloJob("solo.mp3")

	if err := ectx.Stage(context.Background(), "solo.mp3", []byte("pcm")); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	progress := make(chan int)
	seen := collect(progress)
	out, err := ectx.Run(context.Background(), job, progress)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(out) != "L=pcm|R=" {
		t.Fatalf("unexpected output %q", out)
	}
	if got := <-seen; !slices.Equal(got, []int{0, 25, 50, 75, 100}) {
		t.Fatalf("unexpected progress %v", got)
	}
	if ectx.State() != engine.StateIdle {
		t.Fatalf("expected idle after run, got %s", ectx.State())
	}

	ectx.Release(context.Background(), "solo.mp3", job.OutputName())
	if staged := eng.Handles()[0].Staged(); len(staged) != 0 {
		t.Fatalf("expected released scratch space, got %v", staged)
	}
}

func TestRunProgressIsClampedAndMonotonic(t *testing.T) {
	eng := &enginetest.Engine{Steps: []int{-5, 10, 40, 30, 40, 90, 140}}
	ectx := newContext(t, eng)
	if err := ectx.Stage(context.Background(), "solo.mp3", []byte("pcm")); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	progress := make(chan int, 16)
	if _, err := ectx.Run(context.Background(), soloJob("solo.mp3"), progress); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var got []int
	for p := range progress {
		got = append(got, p)
	}
	if want := []int{0, 10, 40, 90, 100}; !slices.Equal(got, want) {
		t.Fatalf("progress = %v, want %v", got, want)
	}
}

func TestRunFailureIsRunError(t *testing.T) {
	eng := &enginetest.Engine{FailRun: map[string]error{"bad.mp3": errors.New("invalid data")}}
	ectx := newContext(t, eng)
	if err := ectx.Stage(context.Background(), "bad.mp3", nil); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	progress := make(chan int, 16)
	_, err := ectx.Run(context.Background(), soloJob("bad.mp3"), progress)
	var runErr *engine.RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected RunError, got %v", err)
	}
	if runErr.Item != "bad.mp3" {
		t.Fatalf("unexpected item %q", runErr.Item)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	var seen []int
	for p := range progress {
		seen = append(seen, p)
	}
	if !slices.Equal(seen, []int{0, 25}) {
		t.Fatalf("expected progress to stop at last value, got %v", seen)
	}
	if ectx.State() != engine.StateIdle {
		t.Fatalf("expected idle after failed run, got %s", ectx.State())
	}
}

func TestStageFailureIsStagingError(t *testing.T) {
	eng := &enginetest.Engine{FailStage: map[string]error{"a.mp3": errors.New("disk full")}}
	ectx := newContext(t, eng)
	err := ectx.Stage(context.Background(), "a.mp3", []byte("x"))
	var stageErr *engine.StagingError
	if !errors.As(err, &stageErr) || stageErr.Name != "a.mp3" {
		t.Fatalf("expected StagingError for a.mp3, got %v", err)
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestLoadFailureIsLoadError(t *testing.T) {
	eng := &enginetest.Engine{FailLoad: 1, LoadErr: errors.New("wasm missing")}
	_, err := engine.New(context.Background(), eng, 3, nil)
	var loadErr *engine.LoadError
	if !errors.As(err, &loadErr) || loadErr.Context != 3 {
		t.Fatalf("expected LoadError for context 3, got %v", err)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
}

func TestTerminateAbortsInFlightRun(t *testing.T) {
	hold := make(chan struct{})
	defer close(hold)
	started := make(chan string, 1)
	eng := &enginetest.Engine{Hold: hold, Started: started}
	ectx := newContext(t, eng)
	if err := ectx.Stage(context.Background(), "solo.mp3", []byte("pcm")); err != nil {
		t.Fatalf("Stage: %v", err)
	}

	progress := make(chan int, 16)
	type outcome struct {
		out []byte
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		out, err := ectx.Run(context.Background(), soloJob("solo.mp3"), progress)
		done <- outcome{out, err}
	}()
	<-started

	if err := ectx.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	select {
	case res := <-done:
		if res.err == nil || res.out != nil {
			t.Fatalf("expected aborted run to be discarded, got out=%q err=%v", res.out, res.err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not abort after Terminate")
	}
	if err := ectx.Terminate(); err != nil {
		t.Fatalf("second Terminate: %v", err)
	}
}

func TestOperationsAfterTerminateFail(t *testing.T) {
	ectx := newContext(t, &enginetest.Engine{})
	if err := ectx.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if err := ectx.Stage(context.Background(), "a.mp3", nil); !errors.Is(err, engine.ErrTerminated) {
		t.Fatalf("expected ErrTerminated from Stage, got %v", err)
	}
	progress := make(chan int)
	if _, err := ectx.Run(context.Background(), soloJob("a.mp3"), progress); !errors.Is(err, engine.ErrTerminated) {
		t.Fatalf("expected ErrTerminated from Run, got %v", err)
	}
	if _, open := <-progress; open {
		t.Fatal("expected progress channel closed")
	}
}

func TestConcurrentRunIsRejectedWhileBusy(t *testing.T) {
	hold := make(chan struct{})
	started := make(chan string, 1)
	eng := &enginetest.Engine{Hold: hold, Started: started}
	ectx := newContext(t, eng)
	if err := ectx.Stage(context.Background(), "solo.mp3", []byte("pcm")); err != nil {
		t.Fatalf("Stage: %v", err)
	}

	type outcome struct {
		out []byte
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		out, err := ectx.Run(context.Background(), soloJob("solo.mp3"), make(chan int, 16))
		done <- outcome{out, err}
	}()
	<-started
	if ectx.State() != engine.StateRunning {
		t.Fatalf("expected running, got %s", ectx.State())
	}

	second := make(chan int)
	_, err := ectx.Run(context.Background(), soloJob("solo.mp3"), second)
	var runErr *engine.RunError
	if !errors.As(err, &runErr) || !errors.Is(err, engine.ErrBusy) {
		t.Fatalf("expected busy RunError, got %v", err)
	}
	if _, open := <-second; open {
		t.Fatal("expected rejected run to close its progress channel")
	}
	err = ectx.Stage(context.Background(), "other.mp3", []byte("x"))
	var stageErr *engine.StagingError
	if !errors.As(err, &stageErr) || !errors.Is(err, engine.ErrBusy) {
		t.Fatalf("expected busy StagingError, got %v", err)
	}

	close(hold)
	select {
	case res := <-done:
		if res.err != nil || string(res.out) != "L=pcm|R=" {
			t.Fatalf("first run: out=%q err=%v", res.out, res.err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first run did not finish")
	}
	h := eng.Handles()[0]
	if h.Overlaps() != 0 || len(h.Runs()) != 1 {
		t.Fatalf("expected one exclusive run, got runs=%v overlaps=%d", h.Runs(), h.Overlaps())
	}
	if ectx.State() != engine.StateIdle {
		t.Fatalf("expected idle after run, got %s", ectx.State())
	}
}

func TestFailedStageReturnsToIdle(t *testing.T) {
	eng := &enginetest.Engine{FailStage: map[string]error{"a.mp3": errors.New("disk full")}}
	ectx := newContext(t, eng)
	if err := ectx.Stage(context.Background(), "a.mp3", []byte("x")); err == nil {
		t.Fatal("expected stage failure")
	}
	if ectx.State() != engine.StateIdle {
		t.Fatalf("expected idle after failed stage, got %s", ectx.State())
	}
	if err := ectx.Stage(context.Background(), "b.mp3", []byte("y")); err != nil {
		t.Fatalf("Stage after failure: %v", err)
	}
	if ectx.State() != engine.StateStaging {
		t.Fatalf("expected staging, got %s", ectx.State())
	}
}
