package vm

import (
	"fmt"
	"go/token"
	"go/types"
	"io"
	"runtime"
	"strings"

	"github.com/rami3l/staticassert/utils"
)

// Env resolves the names an invocation refers to.
type Env interface {
	Lookup(name string) (Value, bool)
	LookupQualified(pkg, name string) (Value, bool)
	Sizes() types.Sizes
}

// Bindings binds declared generics to concrete arguments, falling back to
// Parent for every other name.
type Bindings struct {
	Args   map[string]Value
	Parent Env
}

func NewBindings(parent Env) *Bindings {
	return &Bindings{Args: make(map[string]Value), Parent: parent}
}

func (b *Bindings) Bind(name string, val Value) *Bindings {
	b.Args[name] = val
	return b
}

func (b *Bindings) Lookup(name string) (Value, bool) {
	if val, ok := b.Args[name]; ok {
		return val, true
	}
	return b.Parent.Lookup(name)
}

func (b *Bindings) LookupQualified(pkg, name string) (Value, bool) {
	return b.Parent.LookupQualified(pkg, name)
}

func (b *Bindings) Sizes() types.Sizes { return b.Parent.Sizes() }

// Universe resolves predeclared Go types and constants only.
type Universe struct{ sizes types.Sizes }

func NewUniverse() Universe {
	return Universe{types.SizesFor("gc", runtime.GOARCH)}
}

func (u Universe) Lookup(name string) (Value, bool) { return LookupScope(types.Universe, name) }

func (u Universe) LookupQualified(pkg, name string) (Value, bool) { return nil, false }

func (u Universe) Sizes() types.Sizes { return u.sizes }

// LookupScope resolves name in scope and its parents as a constant or a type.
func LookupScope(scope *types.Scope, name string) (Value, bool) {
	_, obj := scope.LookupParent(name, token.NoPos)
	return ObjectValue(obj)
}

func ObjectValue(obj types.Object) (Value, bool) {
	switch obj := obj.(type) {
	case *types.Const:
		return FromTypedConstant(obj.Val(), obj.Type())
	case *types.TypeName:
		return VType{obj.Type()}, true
	}
	return nil, false
}

// ParseArg evaluates src as an argument for a declared generic: a constant
// expression or a type name resolvable in env.
func ParseArg(src string, env Env) (Value, error) {
	return NewVM().EvalString(src, env)
}

// ParseBinding splits `NAME=VALUE` and evaluates VALUE with ParseArg.
func ParseBinding(binding string, env Env) (name string, val Value, err error) {
	name, src, found := strings.Cut(binding, "=")
	name = strings.TrimSpace(name)
	if !found || name == "" {
		return "", nil, fmt.Errorf("malformed binding %q, expect NAME=VALUE", binding)
	}
	if val, err = ParseArg(src, env); err != nil {
		return "", nil, fmt.Errorf("binding %s: %w", name, err)
	}
	if val == nil {
		return "", nil, fmt.Errorf("binding %s: expression has no value", name)
	}
	return name, val, nil
}

// Command executes a REPL command on b.
func (b *Bindings) Command(line string, out io.Writer) error {
	cmd, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "bind":
		name, val, err := ParseBinding(arg, b.Parent)
		if err != nil {
			return err
		}
		b.Bind(name, val)
	case "unbind":
		delete(b.Args, arg)
	case "clear":
		b.Args = make(map[string]Value)
	case "env":
		for _, name := range utils.SortedKeys(b.Args) {
			fmt.Fprintf(out, "%s = %s\n", name, b.Args[name])
		}
	default:
		return fmt.Errorf("unknown command :%s, expect one of :bind :unbind :clear :env", cmd)
	}
	return nil
}
