package parser

// Node is a boolean query expression.
type Node interface {
	String() string
	node()
}

// Term matches documents containing Value exactly.
type Term struct {
	Value string
}

type And struct {
	Left, Right Node
}

type Or struct {
	Left, Right Node
}

// Not matches every document of the universe that Operand does not.
type Not struct {
	Operand Node
}

func (Term) node() {}
func (And) node()  {}
func (Or) node()   {}
func (Not) node()  {}

func (n Term) String() string { return n.Value }
func (n And) String() string  { return "(" + n.Left.String() + " && " + n.Right.String() + ")" }
func (n Or) String() string   { return "(" + n.Left.String() + " || " + n.Right.String() + ")" }
func (n Not) String() string  { return "!" + n.Operand.String() }
