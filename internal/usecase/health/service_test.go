package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func ok() Checker { return CheckerFunc(func(context.Context) error { return nil }) }

func fail(msg string) Checker {
	return CheckerFunc(func(context.Context) error { return errors.New(msg) })
}

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(0, nil,
		Component{Name: "vector_store", Checker: ok()},
		Component{Name: "embedding", Checker: ok()},
		Component{Name: "llm", Checker: ok()},
	)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, name := range []string{"vector_store", "embedding", "llm"} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
}

func TestCheck_PartialFailure(t *testing.T) {
	svc := New(0, nil,
		Component{Name: "vector_store", Checker: ok()},
		Component{Name: "embedding", Checker: fail("timeout")},
	)
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["vector_store"] != CheckOK || r.Checks["embedding"] != CheckError {
		t.Errorf("unexpected checks %v", r.Checks)
	}
}

func TestCheck_AllFail(t *testing.T) {
	svc := New(0, nil,
		Component{Name: "vector_store", Checker: fail("db down")},
		Component{Name: "embedding", Checker: fail("emb down")},
	)
	if r := svc.Check(context.Background()); r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
}

func TestCheck_NilCheckerSkipped(t *testing.T) {
	svc := New(0, nil,
		Component{Name: "vector_store", Checker: ok()},
		Component{Name: "llm", Checker: nil},
	)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["llm"]; ok {
		t.Error("llm check should be absent when its checker is nil")
	}
}

func TestCheck_Timeout(t *testing.T) {
	slow := CheckerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	svc := New(20*time.Millisecond, nil,
		Component{Name: "slow", Checker: slow},
		Component{Name: "fast", Checker: ok()},
	)

	start := time.Now()
	r := svc.Check(context.Background())
	if time.Since(start) > time.Second {
		t.Fatal("check did not honor the timeout")
	}
	if r.Checks["slow"] != CheckError || r.Status != Degraded {
		t.Errorf("unexpected report %+v", r)
	}
}
