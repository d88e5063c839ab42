package synthesis

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"
)

// allowedImports is the dependency allow-list for synthesized code.
// Everything here is side-effect-free or network-read-only; anything
// outside it (os, os/exec, syscall, unsafe, ...) is rejected before
// the code ever loads.
var allowedImports = map[string]bool{
	"encoding/json": true,
	"errors":        true,
	"fmt":           true,
	"io":            true,
	"math":          true,
	"net/http":      true,
	"net/url":       true,
	"regexp":        true,
	"sort":          true,
	"strconv":       true,
	"strings":       true,
	"time":          true,
	"unicode":       true,
}

// ValidateSource checks that source is parseable Go declaring the
// capability contract: package main, string constants CapabilityName
// and CapabilityDescription, and a top-level
// Execute(map[string]interface{}) map[string]interface{} function.
// It also enforces the import allow-list.
func ValidateSource(source, expectedName string) error {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "capability.go", source, 0)
	if err != nil {
		return fmt.Errorf("source does not parse: %w", err)
	}
	if file.Name.Name != "main" {
		return fmt.Errorf("package is %q, want main", file.Name.Name)
	}

	for _, imp := range file.Imports {
		path, _ := strconv.Unquote(imp.Path.Value)
		if !allowedImports[path] {
			return fmt.Errorf("import %q is not on the allow-list", path)
		}
	}

	consts := map[string]string{}
	var hasExecute bool
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok != token.CONST {
				continue
			}
			for _, spec := range d.Specs {
				vs, ok := spec.(*ast.ValueSpec)
				if !ok || len(vs.Names) != len(vs.Values) {
					continue
				}
				for i, name := range vs.Names {
					if lit, ok := vs.Values[i].(*ast.BasicLit); ok && lit.Kind == token.STRING {
						v, _ := strconv.Unquote(lit.Value)
						consts[name.Name] = v
					}
				}
			}
		case *ast.FuncDecl:
			if d.Name.Name == "Execute" && d.Recv == nil && validExecuteSignature(d.Type) {
				hasExecute = true
			}
		}
	}

	declaredName, ok := consts["CapabilityName"]
	if !ok {
		return fmt.Errorf("missing CapabilityName constant")
	}
	if expectedName != "" && declaredName != expectedName {
		return fmt.Errorf("CapabilityName is %q, want %q", declaredName, expectedName)
	}
	if _, ok := consts["CapabilityDescription"]; !ok {
		return fmt.Errorf("missing CapabilityDescription constant")
	}
	if !hasExecute {
		return fmt.Errorf("missing Execute(map[string]interface{}) map[string]interface{} function")
	}
	return nil
}

func validExecuteSignature(ft *ast.FuncType) bool {
	if ft.Params == nil || len(ft.Params.List) != 1 {
		return false
	}
	if ft.Results == nil || len(ft.Results.List) != 1 {
		return false
	}
	return isStringAnyMap(ft.Params.List[0].Type) && isStringAnyMap(ft.Results.List[0].Type)
}

func isStringAnyMap(expr ast.Expr) bool {
	m, ok := expr.(*ast.MapType)
	if !ok {
		return false
	}
	key, ok := m.Key.(*ast.Ident)
	if !ok || key.Name != "string" {
		return false
	}
	switch v := m.Value.(type) {
	case *ast.Ident:
		return v.Name == "any"
	case *ast.InterfaceType:
		return len(v.Methods.List) == 0
	default:
		return false
	}
}

// missingImportFrom inspects a load error and reports the import path
// the interpreter could not satisfy, if that is what failed.
func missingImportFrom(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	msg := err.Error()
	for _, marker := range []string{`unable to find source related to: "`, `import "`} {
		if i := strings.Index(msg, marker); i >= 0 {
			rest := msg[i+len(marker):]
			if j := strings.Index(rest, `"`); j > 0 {
				return rest[:j], true
			}
		}
	}
	return "", false
}
