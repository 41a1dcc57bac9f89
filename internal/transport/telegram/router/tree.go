package router

import (
	"slices"
	"strings"
)

type cmdNode struct {
	name     string
	cmd      *Command
	children map[string]*cmdNode
}

func newRoot() *cmdNode { return &cmdNode{children: map[string]*cmdNode{}} }

func splitRoute(route string) []string {
	return strings.Fields(strings.ToLower(route))
}

// add installs c at route. Extra names for the last token point at the
// same node.
func (r *cmdNode) add(route []string, c Command, aliases []string) *cmdNode {
	cur := r
	for i, tok := range route {
		n, ok := cur.children[tok]
		if !ok {
			n = &cmdNode{name: tok, children: map[string]*cmdNode{}}
			cur.children[tok] = n
		}
		if i == len(route)-1 {
			n.cmd = &c
			for _, a := range aliases {
				a = strings.ToLower(strings.TrimSpace(a))
				if _, taken := cur.children[a]; a != "" && !taken {
					cur.children[a] = n
				}
			}
		}
		cur = n
	}
	return cur
}

func (r *cmdNode) find(path []string) *cmdNode {
	cur := r
	for _, p := range path {
		n, ok := cur.child(p)
		if !ok {
			return nil
		}
		cur = n
	}
	return cur
}

func (r *cmdNode) child(name string) (*cmdNode, bool) {
	n, ok := r.children[strings.ToLower(name)]
	return n, ok
}

// childNames lists canonical children only, aliases excluded.
func (r *cmdNode) childNames() []string {
	out := make([]string, 0, len(r.children))
	for k, n := range r.children {
		if n.name == k {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}
