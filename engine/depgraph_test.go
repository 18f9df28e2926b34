package engine

import (
	"reflect"
	"sort"
	"testing"
)

func TestDependencyGraphBlocksUntilResolved(t *testing.T) {
	g := NewDependencyGraph()
	g.AddEdge(DependencyEdge{WaiterID: 2, BlockerID: 1})

	if !g.IsBlocked(2) {
		t.Fatal("waiter should be blocked before blocker resolves")
	}

	unblocked, cascade := g.Resolve(1, false)
	if len(cascade) != 0 {
		t.Fatalf("no cascade expected, got %v", cascade)
	}
	if !reflect.DeepEqual(unblocked, []int64{2}) {
		t.Fatalf("expected waiter 2 unblocked, got %v", unblocked)
	}
	if g.IsBlocked(2) {
		t.Fatal("waiter must not be blocked after blocker resolves")
	}
}

func TestDependencyGraphMultipleBlockersAllMustResolve(t *testing.T) {
	g := NewDependencyGraph()
	g.AddEdge(DependencyEdge{WaiterID: 3, BlockerID: 1})
	g.AddEdge(DependencyEdge{WaiterID: 3, BlockerID: 2})

	unblocked, _ := g.Resolve(1, false)
	if len(unblocked) != 0 {
		t.Fatalf("waiter with an outstanding blocker must not be unblocked yet, got %v", unblocked)
	}
	if !g.IsBlocked(3) {
		t.Fatal("waiter should still be blocked on job 2")
	}

	unblocked, _ = g.Resolve(2, false)
	if !reflect.DeepEqual(unblocked, []int64{3}) {
		t.Fatalf("expected waiter 3 unblocked once all blockers resolve, got %v", unblocked)
	}
}

func TestDependencyGraphCascadeFailureByDefault(t *testing.T) {
	g := NewDependencyGraph()
	g.AddEdge(DependencyEdge{WaiterID: 2, BlockerID: 1})

	unblocked, cascade := g.Resolve(1, true)
	if len(unblocked) != 0 {
		t.Fatalf("a cascading waiter must not appear as plain-unblocked, got %v", unblocked)
	}
	if !reflect.DeepEqual(cascade, []int64{2}) {
		t.Fatalf("expected waiter 2 to cascade-fail, got %v", cascade)
	}
}

func TestDependencyGraphContinueOnBlockerFailureOptsOut(t *testing.T) {
	g := NewDependencyGraph()
	g.AddEdge(DependencyEdge{WaiterID: 2, BlockerID: 1, ContinueOnBlockerFailure: true})

	unblocked, cascade := g.Resolve(1, true)
	if len(cascade) != 0 {
		t.Fatalf("ContinueOnBlockerFailure waiter must not cascade-fail, got %v", cascade)
	}
	if !reflect.DeepEqual(unblocked, []int64{2}) {
		t.Fatalf("expected waiter 2 unblocked despite blocker failure, got %v", unblocked)
	}
}

func TestDependencyGraphMultipleWaitersOnOneBlocker(t *testing.T) {
	g := NewDependencyGraph()
	g.AddEdge(DependencyEdge{WaiterID: 10, BlockerID: 1})
	g.AddEdge(DependencyEdge{WaiterID: 11, BlockerID: 1})

	unblocked, _ := g.Resolve(1, false)
	sort.Slice(unblocked, func(i, j int) bool { return unblocked[i] < unblocked[j] })
	if !reflect.DeepEqual(unblocked, []int64{10, 11}) {
		t.Fatalf("expected both waiters unblocked, got %v", unblocked)
	}
}

func TestDependencyGraphForgetRemovesAllEdges(t *testing.T) {
	g := NewDependencyGraph()
	g.AddEdge(DependencyEdge{WaiterID: 2, BlockerID: 1})
	g.Forget(2)
	if g.IsBlocked(2) {
		t.Fatal("forgotten waiter must not be blocked")
	}

	g2 := NewDependencyGraph()
	g2.AddEdge(DependencyEdge{WaiterID: 2, BlockerID: 1})
	g2.Forget(1)
	unblocked, _ := g2.Resolve(1, false)
	if len(unblocked) != 0 {
		t.Fatal("forgetting a blocker must remove its waiter edges, leaving nothing to resolve")
	}
}

func TestDependencyGraphLoadReplacesContents(t *testing.T) {
	g := NewDependencyGraph()
	g.AddEdge(DependencyEdge{WaiterID: 99, BlockerID: 98})

	g.Load([]DependencyEdge{{WaiterID: 2, BlockerID: 1}})

	if g.IsBlocked(99) {
		t.Fatal("Load must replace prior contents, not merge")
	}
	if !g.IsBlocked(2) {
		t.Fatal("Load must materialise the given edges")
	}
}
