package extrinsics

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/timor11/librealsense/errors"
)

const component = "ExtrinsicsGraph"

// defaultCacheSize bounds the memoized lookup results.
const defaultCacheSize = 128

// Entity identifies a graph node: the owning device serial plus a stable
// per-device key. Streams and every tracked profile instance each get their
// own entity.
type Entity struct {
	Device string `json:"device"`
	Key    string `json:"key"`
}

// String renders the entity as "device:key".
func (e Entity) String() string {
	return e.Device + ":" + e.Key
}

// StreamEntity returns the node reference for a named stream of a device.
func StreamEntity(device, streamName string) Entity {
	return Entity{Device: device, Key: "stream/" + streamName}
}

// ProfileEntity returns the node reference for one tracked profile instance.
// The sequence number distinguishes instances; raw and finalized profiles of
// the same mode are distinct nodes until linked same-origin.
func ProfileEntity(device string, seq int) Entity {
	return Entity{Device: device, Key: "profile/" + strconv.Itoa(seq)}
}

// Graph is the shared extrinsics store. Edges are directed: registering a→b
// says nothing about b→a, and callers register the reverse edge themselves
// when they know it. Same-origin registration merges a profile's node into
// its stream's node so lookups through either resolve identically.
//
// The graph is read-mostly after construction and safe for concurrent
// lookups while another device is still being built; paths that are not
// wired yet simply report ErrNotConnected.
type Graph struct {
	mu    sync.RWMutex
	nodes map[Entity]int
	edges map[int]map[int]Transform
	owned map[string]map[int]struct{}
	next  int
	gen   uint64

	cache *pathCache

	lookups     atomic.Uint64
	cacheHits   atomic.Uint64
	unreachable atomic.Uint64
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[Entity]int),
		edges: make(map[int]map[int]Transform),
		owned: make(map[string]map[int]struct{}),
		cache: newPathCache(defaultCacheSize),
	}
}

// ensureNodeLocked resolves or creates the node for an entity. Caller holds
// the write lock.
func (g *Graph) ensureNodeLocked(e Entity) int {
	if id, ok := g.nodes[e]; ok {
		return id
	}
	id := g.next
	g.next++
	g.nodes[e] = id

	owned := g.owned[e.Device]
	if owned == nil {
		owned = make(map[int]struct{})
		g.owned[e.Device] = owned
	}
	owned[id] = struct{}{}
	return id
}

// RegisterExtrinsics records the directed transform from a to b, creating
// nodes as needed. Re-registering a pair overwrites the previous transform.
func (g *Graph) RegisterExtrinsics(a, b Entity, tf Transform) {
	if a == b {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	from := g.ensureNodeLocked(a)
	to := g.ensureNodeLocked(b)

	m := g.edges[from]
	if m == nil {
		m = make(map[int]Transform)
		g.edges[from] = m
	}
	m[to] = tf
	g.gen++
}

// RegisterStream adds the node for a stream, creating it if needed. Streams
// must hold a node before profiles link to them same-origin; devices without
// any published extrinsics still seed their streams here so identity lookups
// within a stream resolve.
func (g *Graph) RegisterStream(s Entity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ensureNodeLocked(s)
	g.gen++
}

// RegisterProfile adds an isolated node for a profile instance. The node
// stays unreachable until linked same-origin to its stream.
func (g *Graph) RegisterProfile(p Entity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ensureNodeLocked(p)
	g.gen++
}

// RegisterSameOrigin merges the profile's node into the stream's node:
// afterwards a lookup between them is the identity and any path through the
// stream serves the profile too. The stream must already have a node; links
// registered before their stream fail with ErrUnknownNode.
func (g *Graph) RegisterSameOrigin(streamEnt, profile Entity) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	into, ok := g.nodes[streamEnt]
	if !ok {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrUnknownNode, streamEnt),
			component, "RegisterSameOrigin", "resolve stream node")
	}

	old, existed := g.nodes[profile]
	if !existed {
		g.nodes[profile] = into
		g.gen++
		return nil
	}

	g.mergeLocked(old, into)
	g.gen++
	return nil
}

// mergeLocked folds node old into node into: edges move across (existing
// transforms on into win), every entity mapped to old is remapped, and old
// disappears. Caller holds the write lock.
func (g *Graph) mergeLocked(old, into int) {
	if old == into {
		return
	}

	for dst, tf := range g.edges[old] {
		if dst == into {
			continue
		}
		m := g.edges[into]
		if m == nil {
			m = make(map[int]Transform)
			g.edges[into] = m
		}
		if _, exists := m[dst]; !exists {
			m[dst] = tf
		}
	}
	delete(g.edges, old)

	for src, m := range g.edges {
		if tf, ok := m[old]; ok {
			delete(m, old)
			if src != into {
				if _, exists := m[into]; !exists {
					m[into] = tf
				}
			}
		}
	}

	for e, id := range g.nodes {
		if id == old {
			g.nodes[e] = into
		}
	}
	for _, ids := range g.owned {
		delete(ids, old)
	}
}

// Lookup composes the transform mapping a's frame into b's frame along the
// fewest-hop directed path. Equal entities and entities merged into one node
// yield the identity. Unregistered entities and unreachable pairs fail with
// ErrNotConnected.
func (g *Graph) Lookup(a, b Entity) (Transform, error) {
	g.lookups.Add(1)

	if a == b {
		return Identity(), nil
	}

	g.mu.RLock()
	from, aok := g.nodes[a]
	to, bok := g.nodes[b]
	gen := g.gen

	if !aok || !bok {
		g.mu.RUnlock()
		g.unreachable.Add(1)
		return Transform{}, fmt.Errorf("%w: %s -> %s", errors.ErrNotConnected, a, b)
	}
	if from == to {
		g.mu.RUnlock()
		return Identity(), nil
	}

	key := pairKey{from, to}
	if tf, ok := g.cache.get(key, gen); ok {
		g.mu.RUnlock()
		g.cacheHits.Add(1)
		return tf, nil
	}

	tf, found := g.bfsLocked(from, to)
	g.mu.RUnlock()

	if !found {
		g.unreachable.Add(1)
		return Transform{}, fmt.Errorf("%w: %s -> %s", errors.ErrNotConnected, a, b)
	}

	g.cache.put(key, gen, tf)
	return tf, nil
}

// bfsLocked walks outgoing edges breadth-first from node from, composing
// transforms along the way. Caller holds at least the read lock.
func (g *Graph) bfsLocked(from, to int) (Transform, bool) {
	type hop struct {
		id int
		tf Transform
	}

	visited := map[int]bool{from: true}
	queue := []hop{{id: from, tf: Identity()}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.id == to {
			return cur.tf, true
		}
		for dst, edge := range g.edges[cur.id] {
			if visited[dst] {
				continue
			}
			visited[dst] = true
			queue = append(queue, hop{id: dst, tf: cur.tf.Then(edge)})
		}
	}
	return Transform{}, false
}

// RemoveDevice drops every node the device owns, all edges touching them,
// and every entity reference of the device. Called by the environment when
// the last holder of a device releases it.
func (g *Graph) RemoveDevice(device string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ids := g.owned[device]
	delete(g.owned, device)
	if len(ids) == 0 {
		return
	}

	for id := range ids {
		delete(g.edges, id)
	}
	for src, m := range g.edges {
		for dst := range m {
			if _, gone := ids[dst]; gone {
				delete(m, dst)
			}
		}
		if len(m) == 0 {
			delete(g.edges, src)
		}
	}
	for e, id := range g.nodes {
		if e.Device == device {
			delete(g.nodes, e)
			continue
		}
		if _, gone := ids[id]; gone {
			delete(g.nodes, e)
		}
	}
	g.gen++
}

// Stats is a point-in-time summary of graph size and lookup traffic.
type Stats struct {
	Entities    int    `json:"entities"`
	Nodes       int    `json:"nodes"`
	Edges       int    `json:"edges"`
	Lookups     uint64 `json:"lookups"`
	CacheHits   uint64 `json:"cache-hits"`
	Unreachable uint64 `json:"unreachable"`
}

// Stats returns current graph counters.
func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	canonical := make(map[int]struct{}, len(g.nodes))
	for _, id := range g.nodes {
		canonical[id] = struct{}{}
	}
	edges := 0
	for _, m := range g.edges {
		edges += len(m)
	}

	return Stats{
		Entities:    len(g.nodes),
		Nodes:       len(canonical),
		Edges:       edges,
		Lookups:     g.lookups.Load(),
		CacheHits:   g.cacheHits.Load(),
		Unreachable: g.unreachable.Load(),
	}
}
