// Package dedupe finds contacts that describe the same person or company
// and merges them into the oldest record.
package dedupe

// UnionFind is a disjoint set over contact IDs with path compression and
// union by size.
type UnionFind struct {
	parent map[int64]int64
	size   map[int64]int
}

// NewUnionFind creates an empty set
func NewUnionFind() *UnionFind {
	return &UnionFind{
		parent: make(map[int64]int64),
		size:   make(map[int64]int),
	}
}

// Add registers id as its own singleton set; re-adding is a no-op
func (u *UnionFind) Add(id int64) {
	if _, ok := u.parent[id]; ok {
		return
	}
	u.parent[id] = id
	u.size[id] = 1
}

// Find returns the representative of id's set
func (u *UnionFind) Find(id int64) int64 {
	u.Add(id)
	root := id
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for id != root {
		next := u.parent[id]
		u.parent[id] = root
		id = next
	}
	return root
}

// Union joins the sets of a and b and reports whether they were distinct
func (u *UnionFind) Union(a, b int64) bool {
	ra, rb := u.Find(a), u.Find(b)
	if ra == rb {
		return false
	}
	if u.size[ra] < u.size[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	u.size[ra] += u.size[rb]
	delete(u.size, rb)
	return true
}

// Connected reports whether a and b are in the same set
func (u *UnionFind) Connected(a, b int64) bool {
	return u.Find(a) == u.Find(b)
}

// Sets returns the members of every set keyed by representative
func (u *UnionFind) Sets() map[int64][]int64 {
	sets := make(map[int64][]int64, len(u.size))
	for id := range u.parent {
		root := u.Find(id)
		sets[root] = append(sets[root], id)
	}
	return sets
}
