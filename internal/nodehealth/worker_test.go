package nodehealth

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ploxora/internal/model"
)

type fakeSource struct {
	nodes    []*model.Node
	inFlight int32
	maxSeen  int32
	mu       sync.Mutex
	checked  map[string]int
}

func (f *fakeSource) ListStored(context.Context) ([]*model.Node, error) {
	return f.nodes, nil
}

func (f *fakeSource) RefreshStatus(_ context.Context, n *model.Node) model.NodeStatus {
	cur := atomic.AddInt32(&f.inFlight, 1)
	for {
		prev := atomic.LoadInt32(&f.maxSeen)
		if cur <= prev || atomic.CompareAndSwapInt32(&f.maxSeen, prev, cur) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(&f.inFlight, -1)

	f.mu.Lock()
	f.checked[n.ID]++
	f.mu.Unlock()
	if n.Name == "up" {
		return model.NodeStatusOnline
	}
	return model.NodeStatusOffline
}

func TestCheckAll_BoundedConcurrency(t *testing.T) {
	src := &fakeSource{checked: map[string]int{}}
	for i := 0; i < 10; i++ {
		name := "down"
		if i%2 == 0 {
			name = "up"
		}
		src.nodes = append(src.nodes, &model.Node{ID: string(rune('a' + i)), Name: name})
	}

	w := NewWorker(&Config{Nodes: src, Concurrency: 3, IntervalSec: 60})
	results := w.CheckAll(context.Background())

	if len(results) != 10 {
		t.Fatalf("Expected 10 results, got %d", len(results))
	}
	if src.maxSeen > 3 {
		t.Errorf("Expected at most 3 concurrent checks, saw %d", src.maxSeen)
	}
	online := 0
	for _, r := range results {
		if r.OK {
			online++
		}
	}
	if online != 5 {
		t.Errorf("Expected 5 online nodes, got %d", online)
	}
	for _, n := range src.nodes {
		if src.checked[n.ID] != 1 {
			t.Errorf("node %s checked %d times", n.ID, src.checked[n.ID])
		}
	}
}

func TestStartStop(t *testing.T) {
	src := &fakeSource{checked: map[string]int{}}
	w := NewWorker(&Config{Nodes: src, IntervalSec: 1})
	w.Start()
	w.Stop()
}
