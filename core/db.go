package core

// DBOrdering describes a sort directive passed down to the document store.
type DBOrdering struct {
	Field     string
	Ascending bool
}

// Direction returns the sort direction the mongo driver expects.
func (ord DBOrdering) Direction() int {
	if ord.Ascending {
		return 1
	}
	return -1
}
