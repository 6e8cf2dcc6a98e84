package graph

import (
	"net/url"
	"strings"
	"sync"
)

// ExternalColor is the display color assigned to nodes outside the crawled domain
const ExternalColor = "#ccc"

// RootLabel is the label used for the site root
const RootLabel = "/"

// Graph holds the deduplicated link graph of one crawl in memory
type Graph struct {
	nodes   map[string]*Node // url key -> node
	order   []string         // node ids in discovery order
	edges   []Edge
	edgeSet map[Edge]struct{}
	mu      sync.RWMutex
}

// NewGraph creates an empty in-memory graph
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edgeSet: make(map[Edge]struct{}),
	}
}

// AddNode registers a node for the given URL key if it does not exist yet.
// Returns true if the node was created.
func (g *Graph) AddNode(id string, external bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		return false
	}

	node := &Node{
		ID:       id,
		Label:    Label(id),
		External: external,
	}
	if external {
		node.Label = id
	}

	g.nodes[id] = node
	g.order = append(g.order, id)
	return true
}

// AddEdge records a directed edge. Duplicate (from, to) pairs are ignored.
// Returns true if the edge was created.
func (g *Graph) AddEdge(from, to string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	e := Edge{From: from, To: to}
	if _, exists := g.edgeSet[e]; exists {
		return false
	}
	g.edgeSet[e] = struct{}{}
	g.edges = append(g.edges, e)
	return true
}

// SetLabel overrides the label of an existing node
func (g *Graph) SetLabel(id, label string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, exists := g.nodes[id]
	if !exists {
		return false
	}
	node.Label = label
	return true
}

// GetStats returns current graph statistics
func (g *Graph) GetStats() (nodeCount, edgeCount int) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.nodes), len(g.edges)
}

// Snapshot returns the graph contents in discovery order
func (g *Graph) Snapshot() Data {
	g.mu.RLock()
	defer g.mu.RUnlock()

	data := Data{
		Nodes: make([]Node, 0, len(g.order)),
		Edges: make([]Edge, len(g.edges)),
	}
	for _, id := range g.order {
		data.Nodes = append(data.Nodes, *g.nodes[id])
	}
	copy(data.Edges, g.edges)
	return data
}

// Label derives the display label of a URL key: its last path segment,
// or RootLabel when the path is empty
func Label(id string) string {
	path := id
	if parsed, err := url.Parse(id); err == nil {
		path = parsed.Path
		// mailto:, tel: and similar keep their body in Opaque
		if parsed.Opaque != "" {
			path = parsed.Opaque
		}
	}

	path = strings.TrimRight(path, "/")
	if path == "" {
		return RootLabel
	}
	return path[strings.LastIndex(path, "/")+1:]
}
