package scss

type nodeKind int

const (
	nodeRoot nodeKind = iota
	nodeRule
	nodeAt
	nodeDecl
	nodeComment
)

// cssNode is a node of the evaluated, flat CSS tree. Rules only hold
// declarations and comments; nested rules are emitted as siblings.
type cssNode struct {
	kind      nodeKind
	selectors []string
	name      string
	prelude   string
	prop      string
	value     string
	block     bool
	children  []*cssNode
}

func (n *cssNode) add(child *cssNode) {
	n.children = append(n.children, child)
}

// empty reports whether n would produce no output. keepComment decides
// which comments survive the output style.
func (n *cssNode) empty(keepComment func(*cssNode) bool) bool {
	switch n.kind {
	case nodeDecl:
		return false
	case nodeComment:
		return !keepComment(n)
	case nodeRule:
		if len(n.selectors) == 0 {
			return true
		}
	case nodeAt:
		if !n.block {
			return false
		}
	}
	for _, c := range n.children {
		if !c.empty(keepComment) {
			return false
		}
	}
	return true
}
