// Package directive finds //static:assert comments in Go source files and
// attaches each of them to the declaration it belongs to.
//
// A directive belongs to the function declaration whose doc comment or body
// contains it, or to the type declaration whose doc comment or definition
// contains it. Any other directive is file-level and has no owner.
//
// A directive line ending with a backslash continues on the next line of the
// same comment group:
//
//	//static:assert (N: int, M: int) \
//	//	N > M => "N must be greater than M"
package directive

import (
	"go/ast"
	"go/token"
	"strings"
)

const Prefix = "//static:assert"

type Directive struct {
	// Invocation text with continuation lines joined by newlines.
	Text string
	// Position of the first rune of each line of Text.
	Lines []token.Pos
	// *ast.FuncDecl, *ast.TypeSpec, or nil.
	Owner ast.Node
}

func (d *Directive) Pos() token.Pos { return d.Lines[0] }

// PosFor maps a 1-based line and column inside Text to a file position.
func (d *Directive) PosFor(line, col int) token.Pos {
	if line < 1 || line > len(d.Lines) {
		return d.Pos()
	}
	return d.Lines[line-1] + token.Pos(col-1)
}

// OwnerName returns the name of the owning declaration, or nil.
func (d *Directive) OwnerName() *ast.Ident {
	switch owner := d.Owner.(type) {
	case *ast.FuncDecl:
		return owner.Name
	case *ast.TypeSpec:
		return owner.Name
	}
	return nil
}

// Find returns the directives of file in source order.
func Find(file *ast.File) (res []*Directive) {
	for _, group := range file.Comments {
		list := group.List
		for i := 0; i < len(list); i++ {
			text, ok := cutPrefix(list[i].Text)
			if !ok {
				continue
			}
			d := &Directive{Lines: []token.Pos{list[i].Pos() + token.Pos(len(list[i].Text)-len(text))}}
			var lines []string
			for {
				line, more := strings.CutSuffix(strings.TrimRight(text, " \t"), `\`)
				lines = append(lines, strings.TrimRight(line, " \t"))
				if !more || i+1 >= len(list) || !strings.HasPrefix(list[i+1].Text, "//") {
					break
				}
				i++
				next := strings.TrimPrefix(list[i].Text, "//")
				text = strings.TrimLeft(next, " \t")
				d.Lines = append(d.Lines, list[i].Pos()+token.Pos(len(list[i].Text)-len(text)))
			}
			d.Text = strings.Join(lines, "\n")
			d.Owner = owner(file, list[i].Pos())
			res = append(res, d)
		}
	}
	return
}

func cutPrefix(comment string) (text string, ok bool) {
	rest, ok := strings.CutPrefix(comment, Prefix)
	if !ok {
		return "", false
	}
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		// E.g. //static:assertion.
		return "", false
	}
	return strings.TrimLeft(rest, " \t"), true
}

func owner(file *ast.File, pos token.Pos) ast.Node {
	for _, decl := range file.Decls {
		switch decl := decl.(type) {
		case *ast.FuncDecl:
			if contains(decl.Doc, pos) || decl.Pos() <= pos && pos < decl.End() {
				return decl
			}
		case *ast.GenDecl:
			if decl.Tok != token.TYPE {
				continue
			}
			for _, spec := range decl.Specs {
				spec := spec.(*ast.TypeSpec)
				if contains(spec.Doc, pos) || spec.Pos() <= pos && pos < spec.End() {
					return spec
				}
			}
			// The doc comment of an unparenthesized declaration belongs to
			// the GenDecl.
			if len(decl.Specs) == 1 && contains(decl.Doc, pos) {
				return decl.Specs[0]
			}
		}
	}
	return nil
}

func contains(doc *ast.CommentGroup, pos token.Pos) bool {
	return doc != nil && doc.Pos() <= pos && pos < doc.End()
}
