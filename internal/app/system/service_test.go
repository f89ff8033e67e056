package system

import (
	"context"
	"fmt"
	"testing"
)

type recordingService struct {
	name    string
	started *[]string
	stopped *[]string
	failOn  bool
}

func (s *recordingService) Name() string { return s.name }

func (s *recordingService) Start(context.Context) error {
	if s.failOn {
		return fmt.Errorf("boom")
	}
	*s.started = append(*s.started, s.name)
	return nil
}

func (s *recordingService) Stop(context.Context) error {
	*s.stopped = append(*s.stopped, s.name)
	return nil
}

func TestManagerStartStopOrder(t *testing.T) {
	var started, stopped []string
	m := NewManager()
	for _, name := range []string{"a", "b", "c"} {
		svc := &recordingService{name: name, started: &started, stopped: &stopped}
		if err := m.Register(svc); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if fmt.Sprint(started) != "[a b c]" {
		t.Fatalf("start order: %v", started)
	}
	if fmt.Sprint(stopped) != "[c b a]" {
		t.Fatalf("stop order: %v", stopped)
	}
}

func TestManagerRejectsDuplicateNames(t *testing.T) {
	m := NewManager()
	if err := m.Register(NoopService{ServiceName: "dup"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := m.Register(NoopService{ServiceName: "dup"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestManagerRollsBackOnStartFailure(t *testing.T) {
	var started, stopped []string
	m := NewManager()
	ok := &recordingService{name: "ok", started: &started, stopped: &stopped}
	bad := &recordingService{name: "bad", started: &started, stopped: &stopped, failOn: true}
	if err := m.Register(ok); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Register(bad); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := m.Start(context.Background()); err == nil {
		t.Fatal("expected start failure")
	}
	if fmt.Sprint(stopped) != "[ok]" {
		t.Fatalf("expected rollback stop of started services, got %v", stopped)
	}
}
