package schema

// node is one element of the template's structure tree. Children keep
// insertion order; byName gives O(1) lookup alongside the ordered slice.
type node struct {
	name     string
	children []*node
	byName   map[string]*node
}

func newNode(name string) *node {
	return &node{name: name, byName: make(map[string]*node)}
}

// child returns the named child, or nil.
func (n *node) child(name string) *node {
	return n.byName[name]
}

// ensure returns the named child, creating and appending it when absent.
func (n *node) ensure(name string) *node {
	if c := n.byName[name]; c != nil {
		return c
	}
	c := newNode(name)
	n.children = append(n.children, c)
	n.byName[name] = c
	return c
}

// childNames returns child names in their current order.
func (n *node) childNames() []string {
	out := make([]string, len(n.children))
	for i, c := range n.children {
		out[i] = c.name
	}
	return out
}

// indexOf returns the position of the named child, or -1.
func (n *node) indexOf(name string) int {
	for i, c := range n.children {
		if c.name == name {
			return i
		}
	}
	return -1
}

// moveBefore rebuilds the child order with the moved child placed just before
// the reference child. Only the two affected positions change; everything
// else keeps its relative order.
func (n *node) moveBefore(moved, before string) {
	mi := n.indexOf(moved)
	bi := n.indexOf(before)
	if mi < 0 || bi < 0 || mi == bi {
		return
	}
	rebuilt := make([]*node, 0, len(n.children))
	m := n.children[mi]
	for i, c := range n.children {
		if i == mi {
			continue
		}
		if c.name == before {
			rebuilt = append(rebuilt, m)
		}
		rebuilt = append(rebuilt, c)
	}
	n.children = rebuilt
}

// graph owns the whole template tree. The synthetic root node holds the
// document root element as its single child.
type graph struct {
	root *node
}

func newGraph() *graph {
	return &graph{root: newNode("")}
}

// ensurePath walks the tag sequence from the document root, creating missing
// nodes, and returns the final node.
func (g *graph) ensurePath(path []string) *node {
	n := g.root
	for _, name := range path {
		n = n.ensure(name)
	}
	return n
}

// at returns the node for a tag sequence, or nil when any segment is absent.
func (g *graph) at(path []string) *node {
	n := g.root
	for _, name := range path {
		n = n.child(name)
		if n == nil {
			return nil
		}
	}
	return n
}

// walk visits every node depth-first in child order. The callback receives
// the dot-joined XPath and the node; returning false prunes the subtree.
func (g *graph) walk(visit func(xpath string, n *node) bool) {
	var rec func(prefix string, n *node)
	rec = func(prefix string, n *node) {
		for _, c := range n.children {
			xpath := c.name
			if prefix != "" {
				xpath = prefix + "." + c.name
			}
			if visit(xpath, c) {
				rec(xpath, c)
			}
		}
	}
	rec("", g.root)
}
