package search

// MaxDepth is the deepest nesting level an expression may reach. The root
// node is at depth 0.
const MaxDepth = 5

// Expr is a node of a search filter expression.
//
// This is a sealed interface - only types in this package implement it.
type Expr interface {
	exprNode()
}

// Not matches images that X does not match.
type Not struct {
	X Expr
}

// And matches images matched by both Left and Right.
type And struct {
	Left  Expr
	Right Expr
}

// Or matches images matched by Left, Right or both.
type Or struct {
	Left  Expr
	Right Expr
}

// Tag matches images carrying the tag with the given id.
type Tag struct {
	ID int64
}

// Attribute matches on an image attribute.
//
// The keys "id", "hash" and "caption" address the image's own columns. A
// Value of "*" or nil matches any value of Key, except that a nil caption
// matches images without a caption.
type Attribute struct {
	Key   string
	Value *string
}

// MinID matches images whose id is at least ID.
type MinID struct {
	ID int64
}

// MaxID matches images whose id is at most ID.
type MaxID struct {
	ID int64
}

func (Not) exprNode()       {}
func (And) exprNode()       {}
func (Or) exprNode()        {}
func (Tag) exprNode()       {}
func (Attribute) exprNode() {}
func (MinID) exprNode()     {}
func (MaxID) exprNode()     {}

// AttributeEquals returns an Attribute matching key = value.
func AttributeEquals(key, value string) Attribute {
	return Attribute{Key: key, Value: &value}
}

// AttributeNull returns an Attribute with no value.
func AttributeNull(key string) Attribute {
	return Attribute{Key: key}
}

// Depth returns the nesting depth of the deepest node in e.
// A single leaf has depth 0; a nil expression has depth -1.
func Depth(e Expr) int {
	switch n := e.(type) {
	case Not:
		return 1 + Depth(n.X)
	case *Not:
		return 1 + Depth(n.X)
	case And:
		return 1 + max(Depth(n.Left), Depth(n.Right))
	case *And:
		return 1 + max(Depth(n.Left), Depth(n.Right))
	case Or:
		return 1 + max(Depth(n.Left), Depth(n.Right))
	case *Or:
		return 1 + max(Depth(n.Left), Depth(n.Right))
	case nil:
		return -1
	default:
		return 0
	}
}
