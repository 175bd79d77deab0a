// Package jsonwalk visits every value of a JSON document together with the
// key it was found under.
package jsonwalk

import (
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
)

// DefaultMaxDepth bounds recursion when callers pass a non-positive depth.
const DefaultMaxDepth = 32

// Kind is the tagged type of a visited value.
type Kind int

const (
	String Kind = iota
	Number
	Bool
	Null
	Object
	Array
)

// Node is one visited value. Array elements carry the key of the array
// that encloses them.
type Node struct {
	Key   string
	Kind  Kind
	Depth int
	Raw   []byte
}

// Text returns the unescaped value of a string node.
func (n Node) Text() (string, bool) {
	if n.Kind != String {
		return "", false
	}
	s, err := jsonparser.ParseString(n.Raw)
	if err != nil {
		return string(n.Raw), true
	}
	return s, true
}

// ErrMalformed is returned when the document cannot be parsed at its root.
var ErrMalformed = errors.New("malformed json")

// Walk calls visit for every value in data, depth first. Subtrees deeper
// than maxDepth are skipped. Malformed nested values stop the walk of
// their parent but keep everything visited so far.
func Walk(data []byte, maxDepth int, visit func(Node)) error {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	value, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	w := walker{maxDepth: maxDepth, visit: visit}
	return w.walk(value, typ, "", 0)
}

type walker struct {
	maxDepth int
	visit    func(Node)
}

func (w walker) walk(value []byte, typ jsonparser.ValueType, key string, depth int) error {
	if depth > w.maxDepth {
		return nil
	}

	kind, ok := kindOf(typ)
	if !ok {
		return fmt.Errorf("%w: unexpected value type %v", ErrMalformed, typ)
	}
	w.visit(Node{Key: key, Kind: kind, Depth: depth, Raw: value})

	switch kind {
	case Object:
		return jsonparser.ObjectEach(value, func(k, v []byte, t jsonparser.ValueType, _ int) error {
			name, err := jsonparser.ParseString(k)
			if err != nil {
				name = string(k)
			}
			return w.walk(v, t, name, depth+1)
		})
	case Array:
		var inner error
		_, err := jsonparser.ArrayEach(value, func(v []byte, t jsonparser.ValueType, _ int, _ error) {
			if inner != nil {
				return
			}
			inner = w.walk(v, t, key, depth+1)
		})
		if inner != nil {
			return inner
		}
		return err
	}
	return nil
}

func kindOf(t jsonparser.ValueType) (Kind, bool) {
	switch t {
	case jsonparser.String:
		return String, true
	case jsonparser.Number:
		return Number, true
	case jsonparser.Boolean:
		return Bool, true
	case jsonparser.Null:
		return Null, true
	case jsonparser.Object:
		return Object, true
	case jsonparser.Array:
		return Array, true
	default:
		return 0, false
	}
}
