// Package graph keeps the catalog's cross references in Neo4j so story
// requests can be enriched with how the requested entities relate.
package graph

import (
	"fmt"

	"github.com/WessleyAI/holocron/engine/domain"
	"github.com/WessleyAI/holocron/engine/swapi"
)

// Node is one catalog entity.
type Node struct {
	Key  string            `json:"key"` // "<type>/<id>"
	Type domain.EntityType `json:"type"`
	Name string            `json:"name"`
}

// Edge is a reference from one entity field to another entity.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Field string `json:"field"`
}

// Fact is a relation found around a requested name.
type Fact struct {
	From     string
	Relation string
	To       string
	ToType   string
}

func (f Fact) String() string {
	return fmt.Sprintf("%s -[%s]-> %s (%s)", f.From, f.Relation, f.To, f.ToType)
}

// FromCache derives every node and edge from a built entity cache.
func FromCache(c *swapi.Cache) ([]Node, []Edge) {
	var nodes []Node
	for _, t := range domain.EntityTypes {
		for _, e := range c.Entities(t) {
			nodes = append(nodes, Node{Key: domain.ReferenceKey(t, e.ID), Type: t, Name: swapi.DisplayName(e.Raw)})
		}
	}
	links := c.Links()
	edges := make([]Edge, 0, len(links))
	for _, l := range links {
		edges = append(edges, Edge{
			From:  domain.ReferenceKey(l.FromType, l.FromID),
			To:    domain.ReferenceKey(l.ToType, l.ToID),
			Field: l.Field,
		})
	}
	return nodes, edges
}
