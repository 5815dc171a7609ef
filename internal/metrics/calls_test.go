package metrics

import (
	"fmt"
	"testing"
	"time"
)

func TestCallLogKeepsInsertionOrder(t *testing.T) {
	log := NewCallLog(8)
	for i := 0; i < 3; i++ {
		log.Append(CallRecord{Dependency: fmt.Sprintf("dep-%d", i)})
	}

	if log.Len() != 3 {
		t.Fatalf("Len = %d, want 3", log.Len())
	}
	snap := log.Snapshot()
	for i, rec := range snap {
		if rec.Dependency != fmt.Sprintf("dep-%d", i) {
			t.Fatalf("snapshot[%d] = %q", i, rec.Dependency)
		}
	}
}

func TestCallLogRollsOver(t *testing.T) {
	log := NewCallLog(4)
	for i := 0; i < 6; i++ {
		log.Append(CallRecord{Dependency: fmt.Sprintf("dep-%d", i), At: time.Now()})
	}

	if log.Len() != 4 {
		t.Fatalf("Len = %d, want 4", log.Len())
	}
	snap := log.Snapshot()
	want := []string{"dep-2", "dep-3", "dep-4", "dep-5"}
	for i, w := range want {
		if snap[i].Dependency != w {
			t.Fatalf("snapshot[%d] = %q, want %q", i, snap[i].Dependency, w)
		}
	}
}

func TestCallLogZeroSizeUsesDefault(t *testing.T) {
	log := NewCallLog(0)
	log.Append(CallRecord{Dependency: "dep"})
	if log.Len() != 1 {
		t.Fatalf("Len = %d, want 1", log.Len())
	}
}
