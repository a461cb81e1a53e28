package item

// Stack is a quantity of a single item.
type Stack struct {
	Item  string `json:"id"`
	Count int    `json:"Count"`
}

// Empty is the empty stack.
var Empty = Stack{}

// NewStack returns a stack of count units of id.
func NewStack(id string, count int) Stack {
	return Stack{Item: id, Count: count}
}

// IsEmpty reports whether the stack holds nothing.
func (s Stack) IsEmpty() bool {
	return s.Item == "" || s.Count <= 0
}

// Copy returns an independent copy of the stack.
// Stacks are values, so this is only here to make call sites read like the
// intent (copying a recipe result before handing it to the world).
func (s Stack) Copy() Stack {
	return s
}

// Split removes up to n units from s and returns them as a new stack.
// The receiver is shrunk in place; an emptied receiver becomes Empty.
func (s *Stack) Split(n int) Stack {
	if s == nil || s.IsEmpty() || n <= 0 {
		return Empty
	}
	if n > s.Count {
		n = s.Count
	}
	out := Stack{Item: s.Item, Count: n}
	s.Count -= n
	if s.Count <= 0 {
		*s = Empty
	}
	return out
}
