//go:build integration

package graph

import (
	"context"
	"os"
	"testing"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func testStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Connect(ctx, envOr("NEO4J_URL", "neo4j://localhost:7687"), os.Getenv("NEO4J_USER"), os.Getenv("NEO4J_PASSWORD"))
	if err != nil {
		t.Fatalf("neo4j: %v", err)
	}
	t.Cleanup(func() {
		sess := s.session(ctx)
		sess.Run(ctx, "MATCH (n:Entity) DETACH DELETE n", nil)
		sess.Close(ctx)
		s.Close(ctx)
	})
	return s
}

func TestNeo4j_SaveAndRelate(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	nodes, edges := FromCache(testCache())

	for i := 0; i < 2; i++ {
		if err := s.SaveGraph(ctx, nodes, edges); err != nil {
			t.Fatalf("SaveGraph: %v", err)
		}
	}
	counts, err := s.NodeCounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts["people"] != 1 || counts["planets"] != 1 {
		t.Errorf("expected idempotent save, got %v", counts)
	}
	facts, err := s.Related(ctx, []string{"Tatooine"}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 1 || facts[0].To != "Luke Skywalker" {
		t.Errorf("unexpected facts: %v", facts)
	}
}
