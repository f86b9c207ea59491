// Package query compiles boolean filter expressions over scene nodes.
//
// Expressions are evaluated with expr-lang against an Env built from each
// node, for example:
//
//	class == "Volume" && name contains "liver"
//	"Volume" in classes && attrs.window == "400"
//	len(refs) > 0 || singleton != ""
package query

import (
	"fmt"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/gyaneshwarpardhi/scenegraph/internal/node"
)

// Env is the view of a node a filter sees.
type Env struct {
	ID        string            `expr:"id"`
	Name      string            `expr:"name"`
	Class     string            `expr:"class"`
	Classes   []string          `expr:"classes"` // class followed by its super classes
	Tag       string            `expr:"tag"`
	Singleton string            `expr:"singleton"`
	Hidden    bool              `expr:"hidden"`
	Save      bool              `expr:"save"`
	Attrs     map[string]string `expr:"attrs"`
	Refs      []string          `expr:"refs"`
	Roles     map[string]string `expr:"roles"`
}

// NewEnv builds the filter environment for n.
func NewEnv(n node.Node) Env {
	classes := []string{n.ClassName()}
	if h, ok := n.(node.Hierarchical); ok {
		classes = append(classes, h.SuperClasses()...)
	}
	roles := make(map[string]string)
	for _, r := range n.Core().References() {
		roles[r.Role] = r.ID
	}
	attrs := node.Attributes(n)
	if attrs == nil {
		attrs = map[string]string{}
	}
	refs := n.ReferencedIDs()
	if refs == nil {
		refs = []string{}
	}
	return Env{
		ID:        n.ID(),
		Name:      n.Name(),
		Class:     n.ClassName(),
		Classes:   classes,
		Tag:       n.TypeTag(),
		Singleton: n.SingletonTag(),
		Hidden:    n.Core().HideFromEditors(),
		Save:      n.SaveWithScene(),
		Attrs:     attrs,
		Refs:      refs,
		Roles:     roles,
	}
}

// Filter is a compiled expression. It is safe for concurrent use.
type Filter struct {
	source  string
	program *vm.Program
}

// Compile parses and type-checks src. The expression must yield a bool.
func Compile(src string) (*Filter, error) {
	program, err := expr.Compile(src, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", src, err)
	}
	return &Filter{source: src, program: program}, nil
}

func (f *Filter) String() string { return f.source }

// Match evaluates the filter against n.
func (f *Filter) Match(n node.Node) (bool, error) {
	out, err := expr.Run(f.program, NewEnv(n))
	if err != nil {
		return false, fmt.Errorf("evaluate filter %q on %s: %w", f.source, n.ID(), err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("filter %q returned %T", f.source, out)
	}
	return b, nil
}

// Select returns the nodes that match, preserving order. It stops at the
// first evaluation error.
func (f *Filter) Select(nodes []node.Node) ([]node.Node, error) {
	var out []node.Node
	for _, n := range nodes {
		ok, err := f.Match(n)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// Fields lists the names an expression can refer to.
func Fields() []string {
	out := []string{"id", "name", "class", "classes", "tag", "singleton", "hidden", "save", "attrs", "refs", "roles"}
	sort.Strings(out)
	return out
}
