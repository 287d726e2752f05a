package graph

// ParentStore holds the parent pointer of every element. Elements it does not
// know are their own parent.
type ParentStore interface {
	Parent(id int64) (int64, error)
	SetParent(id, parent int64) error
}

// UnionFind implements union-find with path compression. Union always hangs
// the larger root under the smaller, so a root is the minimum id of its
// component.
type UnionFind struct {
	store ParentStore
}

// NewUnionFind creates a UnionFind over store
func NewUnionFind(store ParentStore) *UnionFind {
	return &UnionFind{store: store}
}

// Find returns the root of the component containing id, with path compression
func (uf *UnionFind) Find(id int64) (int64, error) {
	root := id
	var path []int64
	for {
		parent, err := uf.store.Parent(root)
		if err != nil {
			return id, err
		}
		if parent == root {
			break
		}
		path = append(path, root)
		root = parent
	}
	// every node on the path except the last already points at root
	for i := 0; i < len(path)-1; i++ {
		if err := uf.store.SetParent(path[i], root); err != nil {
			return root, err
		}
	}
	return root, nil
}

// Union merges the components containing a and b. Returns true if they were separate.
func (uf *UnionFind) Union(a, b int64) (bool, error) {
	rootA, err := uf.Find(a)
	if err != nil {
		return false, err
	}
	rootB, err := uf.Find(b)
	if err != nil {
		return false, err
	}
	if rootA == rootB {
		return false, nil
	}
	if rootA < rootB {
		return true, uf.store.SetParent(rootB, rootA)
	}
	return true, uf.store.SetParent(rootA, rootB)
}

// Reset makes every id its own root again
func (uf *UnionFind) Reset(ids []int64) error {
	for _, id := range ids {
		if err := uf.store.SetParent(id, id); err != nil {
			return err
		}
	}
	return nil
}

// Components groups ids by root
func (uf *UnionFind) Components(ids []int64) (map[int64][]int64, error) {
	groups := make(map[int64][]int64)
	for _, id := range ids {
		root, err := uf.Find(id)
		if err != nil {
			return nil, err
		}
		groups[root] = append(groups[root], id)
	}
	return groups, nil
}

// memParents is an in-memory ParentStore for one-off analysis
type memParents map[int64]int64

func (m memParents) Parent(id int64) (int64, error) {
	if p, ok := m[id]; ok {
		return p, nil
	}
	return id, nil
}

func (m memParents) SetParent(id, parent int64) error {
	m[id] = parent
	return nil
}

// NewMemUnionFind creates a UnionFind held entirely in memory
func NewMemUnionFind() *UnionFind {
	return NewUnionFind(memParents{})
}
