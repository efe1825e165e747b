// Package search defines the filter language for image searches.
//
// A search request names the columns to return, an optional ordering and
// limit, and an optional boolean filter expression. Expressions form a small
// tree:
//
//	Not(X)          negation
//	And(L, R)       conjunction
//	Or(L, R)        disjunction
//	Tag(id)         image carries the tag id
//	Attribute(k, v) image attribute k has value v ("*" or nil: any value)
//	MinID(id)       image id >= id
//	MaxID(id)       image id <= id
//
// Expr is a sealed interface using the marker method pattern, so compilers
// can switch exhaustively over node types.
//
// The wire form is JSON, one key per node:
//
//	{"and": [{"tag": 5}, {"not": {"attribute": ["source", "*"]}}]}
//
// Requests are validated before compilation. Everything that a caller can get
// wrong reports a *CompileError, and every CompileError matches
// ErrInvalidQuery under errors.Is.
package search
