package dag

import "sync"

// Graph is a collection of nodes and their dependencies. Nodes and edges are
// kept in insertion order so every traversal is deterministic. All operations
// on the graph are concurrency-safe.
type Graph struct {
	// mutex protects nodes and order during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by their unique ID.
	nodes map[string]*node
	// order holds the nodes in the order they were added.
	order []*node
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using string IDs).
type node struct {
	id string
	// deps are the nodes this node depends on (predecessors).
	deps []*node
	// dependents are the nodes that depend on this node (successors).
	dependents []*node
}

func (n *node) hasDep(id string) bool {
	for _, d := range n.deps {
		if d.id == id {
			return true
		}
	}
	return false
}
