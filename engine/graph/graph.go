package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// result is the minimal interface needed from a neo4j result.
type result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
}

// runner is the minimal interface needed from a neo4j session.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (result, error)
	Close(ctx context.Context) error
}

type sessionAdapter struct {
	sess neo4j.SessionWithContext
}

func (a *sessionAdapter) Run(ctx context.Context, cypher string, params map[string]any) (result, error) {
	return a.sess.Run(ctx, cypher, params)
}

func (a *sessionAdapter) Close(ctx context.Context) error {
	return a.sess.Close(ctx)
}

// Store reads and writes the entity graph.
type Store struct {
	driver     neo4j.DriverWithContext
	newSession func(ctx context.Context) runner // for testing
}

// New creates a Store on an existing driver.
func New(driver neo4j.DriverWithContext) *Store {
	return &Store{driver: driver}
}

// Connect opens a driver and verifies the server is reachable.
func Connect(ctx context.Context, url, user, password string) (*Store, error) {
	auth := neo4j.NoAuth()
	if user != "" {
		auth = neo4j.BasicAuth(user, password, "")
	}
	driver, err := neo4j.NewDriverWithContext(url, auth)
	if err != nil {
		return nil, fmt.Errorf("graph: connect: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("graph: verify: %w", err)
	}
	return New(driver), nil
}

// Close releases the driver.
func (s *Store) Close(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Close(ctx)
}

func (s *Store) session(ctx context.Context) runner {
	if s.newSession != nil {
		return s.newSession(ctx)
	}
	return &sessionAdapter{sess: s.driver.NewSession(ctx, neo4j.SessionConfig{})}
}

// SaveGraph merges nodes, then edges grouped by relationship type. Saving
// the same graph twice leaves it unchanged.
func (s *Store) SaveGraph(ctx context.Context, nodes []Node, edges []Edge) error {
	sess := s.session(ctx)
	defer sess.Close(ctx)

	rows := make([]any, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, map[string]any{"key": n.Key, "type": string(n.Type), "name": n.Name})
	}
	if len(rows) > 0 {
		cypher := `UNWIND $nodes AS n
			MERGE (e:Entity {key: n.key})
			SET e.type = n.type, e.name = n.name`
		if _, err := sess.Run(ctx, cypher, map[string]any{"nodes": rows}); err != nil {
			return fmt.Errorf("graph: save nodes: %w", err)
		}
	}

	byRel := make(map[string][]any)
	for _, e := range edges {
		rel := sanitizeRelType(e.Field)
		byRel[rel] = append(byRel[rel], map[string]any{"from": e.From, "to": e.To})
	}
	rels := make([]string, 0, len(byRel))
	for r := range byRel {
		rels = append(rels, r)
	}
	sort.Strings(rels)
	for _, rel := range rels {
		cypher := fmt.Sprintf(
			`UNWIND $edges AS r
			 MATCH (a:Entity {key: r.from}), (b:Entity {key: r.to})
			 MERGE (a)-[:%s]->(b)`, rel)
		if _, err := sess.Run(ctx, cypher, map[string]any{"edges": byRel[rel]}); err != nil {
			return fmt.Errorf("graph: save %s edges: %w", rel, err)
		}
	}
	return nil
}

// Related returns relations of entities whose name is one of names, in
// either direction, at most limit rows.
func (s *Store) Related(ctx context.Context, names []string, limit int) ([]Fact, error) {
	if len(names) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	sess := s.session(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (a:Entity)-[r]-(b:Entity)
		WHERE a.name IN $names
		RETURN a.name AS from, type(r) AS rel, b.name AS to, b.type AS type
		ORDER BY from, rel, to
		LIMIT $limit`
	res, err := sess.Run(ctx, cypher, map[string]any{"names": names, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("graph: related: %w", err)
	}
	var facts []Fact
	for res.Next(ctx) {
		rec := res.Record()
		facts = append(facts, Fact{
			From:     strValue(rec, "from"),
			Relation: strValue(rec, "rel"),
			To:       strValue(rec, "to"),
			ToType:   strValue(rec, "type"),
		})
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("graph: related: %w", err)
	}
	return facts, nil
}

// NodeCounts returns entity counts grouped by entity type.
func (s *Store) NodeCounts(ctx context.Context) (map[string]int64, error) {
	sess := s.session(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx, `MATCH (n:Entity) RETURN n.type AS type, count(*) AS count`, nil)
	if err != nil {
		return nil, fmt.Errorf("graph: node counts: %w", err)
	}
	counts := make(map[string]int64)
	for res.Next(ctx) {
		rec := res.Record()
		cnt, _ := rec.Get("count")
		if c, ok := cnt.(int64); ok {
			counts[strValue(rec, "type")] = c
		}
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("graph: node counts: %w", err)
	}
	return counts, nil
}

func strValue(rec *neo4j.Record, key string) string {
	if v, ok := rec.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// sanitizeRelType ensures the relationship type is a valid Cypher identifier.
func sanitizeRelType(t string) string {
	safe := make([]byte, 0, len(t))
	for i := range t {
		c := t[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			safe = append(safe, c)
		}
	}
	if len(safe) == 0 {
		return "RELATED_TO"
	}
	for i := range safe {
		if safe[i] >= 'a' && safe[i] <= 'z' {
			safe[i] -= 32
		}
	}
	return string(safe)
}
