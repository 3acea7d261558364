// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// UnnamedPlaceholder replaces the name of a function or class whose name
// field is missing.
const UnnamedPlaceholder = "<unnamed>"

// Declaration node kinds in tree-sitter-python.
const (
	pyNodeImportStatement     = "import_statement"
	pyNodeImportFromStatement = "import_from_statement"
	pyNodeFunctionDefinition  = "function_definition"
	pyNodeClassDefinition     = "class_definition"
	pyNodeDottedName          = "dotted_name"
	pyNodeAliasedImport       = "aliased_import"
)

// ImportResolver locates the source of an import name.
//
// resolve.Resolver is the production implementation.
type ImportResolver interface {
	Resolve(currentFile, importName string) (string, bool)
}

// walker accumulates declarations during a single traversal.
type walker struct {
	content  []byte
	filePath string
	resolver ImportResolver
	result   *AnalysisResult
}

// visit dispatches on node kind.
//
// class is the ClassInfo receiving function definitions, nil at module
// level. Function bodies are never walked: nested functions are not
// declarations and their calls belong to the enclosing function. Class
// bodies are walked only from the class branch, so no declaration is
// visited twice.
func (w *walker) visit(node *sitter.Node, class *ClassInfo) {
	switch node.Type() {
	case pyNodeImportStatement:
		w.processImportStatement(node)
	case pyNodeImportFromStatement:
		w.processImportFromStatement(node)
	case pyNodeFunctionDefinition:
		fn := buildFunction(node, w.content)
		if class != nil {
			class.Methods = append(class.Methods, fn)
		} else {
			w.result.Functions = append(w.result.Functions, fn)
		}
	case pyNodeClassDefinition:
		w.processClass(node)
	default:
		w.visitChildren(node, class)
	}
}

func (w *walker) visitChildren(node *sitter.Node, class *ClassInfo) {
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil {
			w.visit(child, class)
		}
	}
}

// processClass walks the class body with the new class as context. The
// class is appended after its body, so a nested class precedes its outer
// class in the top-level list.
func (w *walker) processClass(node *sitter.Node) {
	class := ClassInfo{
		Name:    fieldTextOr(node, "name", w.content, UnnamedPlaceholder),
		Methods: make([]FunctionInfo, 0),
	}
	if body := node.ChildByFieldName("body"); body != nil {
		w.visit(body, &class)
	}
	w.result.Classes = append(w.result.Classes, class)
}

// processImportStatement records "import a.b" and "import a as b, c".
// Statements without structured children fall back to the second
// whitespace-separated token.
func (w *walker) processImportStatement(node *sitter.Node) {
	structured := false
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case pyNodeDottedName:
			structured = true
			w.addImport(nodeText(child, w.content))
		case pyNodeAliasedImport:
			structured = true
			if name := child.ChildByFieldName("name"); name != nil {
				w.addImport(nodeText(name, w.content))
			}
		}
	}
	if !structured {
		w.addImportFallback(node)
	}
}

// processImportFromStatement records the module of "from m import x".
// The imported names themselves are not recorded.
func (w *walker) processImportFromStatement(node *sitter.Node) {
	if module := node.ChildByFieldName("module_name"); module != nil {
		w.addImport(nodeText(module, w.content))
		return
	}
	w.addImportFallback(node)
}

func (w *walker) addImportFallback(node *sitter.Node) {
	fields := strings.Fields(nodeText(node, w.content))
	if len(fields) > 1 {
		w.addImport(fields[1])
	}
}

func (w *walker) addImport(name string) {
	imp := ImportInfo{Name: name}
	if w.resolver != nil {
		if path, ok := w.resolver.Resolve(w.filePath, name); ok {
			imp.Path = strPtr(path)
		}
	}
	w.result.Imports = append(w.result.Imports, imp)
}

// buildFunction assembles a FunctionInfo from a function_definition node.
func buildFunction(node *sitter.Node, content []byte) FunctionInfo {
	fn := FunctionInfo{
		Name:       fieldTextOr(node, "name", content, UnnamedPlaceholder),
		Parameters: decodeParameters(node, content),
		ReturnType: returnType(node, content),
	}
	if body := node.ChildByFieldName("body"); body != nil {
		calls := collectCalls(body, content)
		fn.Calls = &calls
	}
	return fn
}

// returnType reads the "return_type" field used by current grammars and
// falls back to "type" used by older ones.
func returnType(node *sitter.Node, content []byte) *string {
	if t := trimmedFieldText(node, "return_type", content); t != nil {
		return t
	}
	return trimmedFieldText(node, "type", content)
}

func fieldTextOr(node *sitter.Node, field string, content []byte, fallback string) string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return fallback
	}
	if text := nodeText(child, content); text != "" {
		return text
	}
	return fallback
}
