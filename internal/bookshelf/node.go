package bookshelf

import (
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Node is an element of the server-side render tree. Attribute access is
// safe for concurrent use; structural changes go through a Surface.
type Node struct {
	ID string

	mu        sync.RWMutex
	classes   []string
	transform string
	label     string
	width     float64
	height    float64

	parent   *Node
	children []*Node
}

// NodeView is a serialisable snapshot of a node and its subtree.
type NodeView struct {
	ID        string     `json:"id"`
	Classes   []string   `json:"classes,omitempty"`
	Transform string     `json:"transform,omitempty"`
	Label     string     `json:"label,omitempty"`
	Width     float64    `json:"width,omitempty"`
	Height    float64    `json:"height,omitempty"`
	Children  []NodeView `json:"children,omitempty"`
}

func NewNode(id string) *Node {
	return &Node{ID: id}
}

// AddClass adds each class that is not present yet.
func (n *Node) AddClass(classes ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, c := range classes {
		if !slices.Contains(n.classes, c) {
			n.classes = append(n.classes, c)
		}
	}
}

// SetClass adds or removes a single class.
func (n *Node) SetClass(class string, on bool) {
	if on {
		n.AddClass(class)
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.classes = slices.DeleteFunc(n.classes, func(c string) bool { return c == class })
}

func (n *Node) HasClass(class string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return slices.Contains(n.classes, class)
}

func (n *Node) Classes() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return slices.Clone(n.classes)
}

func (n *Node) SetTransform(transform string) {
	n.mu.Lock()
	n.transform = transform
	n.mu.Unlock()
}

func (n *Node) Transform() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.transform
}

func (n *Node) SetLabel(label string) {
	n.mu.Lock()
	n.label = label
	n.mu.Unlock()
}

func (n *Node) Label() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.label
}

func (n *Node) SetSize(width, height float64) {
	n.mu.Lock()
	n.width, n.height = width, height
	n.mu.Unlock()
}

// parentNode is read under the surface lock; see Surface.ParentOf.
func (n *Node) parentNode() *Node {
	return n.parent
}

func (n *Node) appendChild(child *Node) {
	if child.parent != nil {
		child.parent.removeChild(child)
	}
	child.parent = n
	n.children = append(n.children, child)
}

func (n *Node) removeChild(child *Node) bool {
	idx := slices.Index(n.children, child)
	if idx < 0 {
		return false
	}
	n.children = slices.Delete(n.children, idx, idx+1)
	child.parent = nil
	return true
}

func (n *Node) view() NodeView {
	n.mu.RLock()
	v := NodeView{
		ID:        n.ID,
		Classes:   slices.Clone(n.classes),
		Transform: n.transform,
		Label:     n.label,
		Width:     n.width,
		Height:    n.height,
	}
	n.mu.RUnlock()
	for _, child := range n.children {
		v.Children = append(v.Children, child.view())
	}
	return v
}

// Surface is the render tree the bookshelf draws into: a root holding one
// container node per shelf.
type Surface struct {
	mu    sync.RWMutex
	root  *Node
	index map[string]*Node
}

func NewSurface() *Surface {
	root := NewNode("bookshelf")
	return &Surface{root: root, index: map[string]*Node{root.ID: root}}
}

// EnsureShelf returns the container for shelf, creating it when missing.
func (s *Surface) EnsureShelf(shelf int) *Node {
	id := ShelfContainerID(shelf)
	s.mu.Lock()
	defer s.mu.Unlock()
	if node, ok := s.index[id]; ok {
		return node
	}
	node := NewNode(id)
	node.AddClass("bookshelf-row", "relative")
	s.root.appendChild(node)
	s.index[id] = node
	return node
}

// RemoveShelf detaches a shelf container and everything mounted in it.
func (s *Surface) RemoveShelf(shelf int) {
	id := ShelfContainerID(shelf)
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.index[id]
	if !ok {
		return
	}
	s.root.removeChild(node)
	delete(s.index, id)
}

// Lookup finds a registered container by id.
func (s *Surface) Lookup(id string) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	node, ok := s.index[id]
	return node, ok
}

// Attach makes child the last child of parent, moving it from any previous
// parent. Attaching a node to its current parent keeps a single copy.
func (s *Surface) Attach(parent, child *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	parent.appendChild(child)
}

// Detach removes node from its parent, if any.
func (s *Surface) Detach(node *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := node.parentNode(); p != nil {
		p.removeChild(node)
	}
}

func (s *Surface) ParentOf(node *Node) *Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return node.parentNode()
}

func (s *Surface) ChildrenOf(node *Node) []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(node.children)
}

// Shelves snapshots every shelf container ordered by shelf number.
func (s *Surface) Shelves() []NodeView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shelves := slices.Clone(s.root.children)
	sort.SliceStable(shelves, func(i, j int) bool {
		return shelfNumber(shelves[i].ID) < shelfNumber(shelves[j].ID)
	})
	out := make([]NodeView, 0, len(shelves))
	for _, shelf := range shelves {
		out = append(out, shelf.view())
	}
	return out
}

func shelfNumber(id string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(id, "shelf-"))
	if err != nil {
		return -1
	}
	return n
}
