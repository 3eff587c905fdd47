package errors

import (
	"fmt"
)

// SyntaxError is a malformed invocation, located relative to the start of
// the invocation text.
type SyntaxError struct {
	Line, Col int
	Reason    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error [L%d:%d]: %s", e.Line, e.Col, e.Reason)
}

// BindError is a declared generic that does not match the enclosing
// declaration, or an undeclared one used from the outer scope.
type BindError struct {
	Name   string
	Reason string
}

func (e *BindError) Error() string {
	return fmt.Sprintf("binding error [%s]: %s", e.Name, e.Reason)
}

// BoundError is a type argument that fails the sizedness bound of its
// declaration.
type BoundError struct {
	Name, TypeArg string
}

func (e *BoundError) Error() string {
	return fmt.Sprintf(
		"bound not satisfied: %s is instantiated with interface type %s; declare it as %s? to allow interface types",
		e.Name, e.TypeArg, e.Name,
	)
}

type EvalError struct {
	Line   int
	Reason string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluation error [L%d]: %s", e.Line, e.Reason)
}

// AssertionError is the designed failure: the predicate evaluated to false.
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("static assertion failed: %s", e.Message)
}

const Unreachable = "internal error: entered unreachable code"
