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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/pyoutline/services/outline/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyzeSource(t *testing.T, source string) *AnalysisResult {
	t.Helper()
	result, err := NewAnalyzer(nil, nil).Analyze(context.Background(), []byte(source), "test.py")
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func callsOf(t *testing.T, fn FunctionInfo) []FunctionCall {
	t.Helper()
	require.NotNil(t, fn.Calls, "function %s should have a call list", fn.Name)
	return *fn.Calls
}

func bare(name string) FunctionCall {
	return FunctionCall{Name: name}
}

func qualified(qualifier, name string) FunctionCall {
	return FunctionCall{Name: name, Qualifier: strPtr(qualifier)}
}

func functionNames(fns []FunctionInfo) []string {
	names := make([]string, 0, len(fns))
	for _, fn := range fns {
		names = append(names, fn.Name)
	}
	return names
}

func TestAnalyze_ImportAndSimpleFunction(t *testing.T) {
	result := analyzeSource(t, "import os\ndef hello():\n  print(\"hi\")\n")

	require.Len(t, result.Imports, 1)
	assert.Equal(t, "os", result.Imports[0].Name)
	assert.Nil(t, result.Imports[0].Path)

	require.Len(t, result.Functions, 1)
	hello := result.Functions[0]
	assert.Equal(t, "hello", hello.Name)
	assert.Empty(t, hello.Parameters)
	assert.NotNil(t, hello.Parameters)
	assert.Nil(t, hello.ReturnType)
	assert.Equal(t, []FunctionCall{bare("print")}, callsOf(t, hello))

	assert.Empty(t, result.Classes)
}

func TestAnalyze_ParameterShapes(t *testing.T) {
	result := analyzeSource(t, "def add(a, b=1, c: int = 2, d: str):\n  return a\n")

	require.Len(t, result.Functions, 1)
	fn := result.Functions[0]
	assert.Equal(t, []ParameterInfo{
		{Name: "a"},
		{Name: "b", Default: strPtr("1")},
		{Name: "c", Type: strPtr("int"), Default: strPtr("2")},
		{Name: "d", Type: strPtr("str")},
	}, fn.Parameters)
	assert.Empty(t, callsOf(t, fn))
}

func TestAnalyze_ParameterTextIsVerbatim(t *testing.T) {
	result := analyzeSource(t, "def f(x=[1, 2], y: \"Foo\" = None, z: Dict[str, int] = {}):\n    pass\n")

	require.Len(t, result.Functions, 1)
	assert.Equal(t, []ParameterInfo{
		{Name: "x", Default: strPtr("[1, 2]")},
		{Name: "y", Type: strPtr(`"Foo"`), Default: strPtr("None")},
		{Name: "z", Type: strPtr("Dict[str, int]"), Default: strPtr("{}")},
	}, result.Functions[0].Parameters)
}

func TestAnalyze_UnrecognizedParametersAreSkipped(t *testing.T) {
	result := analyzeSource(t, "def f(a, /, b, *args, c, **kwargs):\n    pass\n")

	require.Len(t, result.Functions, 1)
	assert.Equal(t, []ParameterInfo{{Name: "a"}, {Name: "b"}, {Name: "c"}}, result.Functions[0].Parameters)
}

func TestAnalyze_TypedSplatKeepsPatternText(t *testing.T) {
	result := analyzeSource(t, "def f(*args: int, **kwargs: str):\n    pass\n")

	require.Len(t, result.Functions, 1)
	assert.Equal(t, []ParameterInfo{
		{Name: "*args", Type: strPtr("int")},
		{Name: "**kwargs", Type: strPtr("str")},
	}, result.Functions[0].Parameters)
}

func TestAnalyze_ReturnType(t *testing.T) {
	result := analyzeSource(t, "def f() -> Dict[str, int]:\n    pass\n\ndef g():\n    pass\n")

	require.Len(t, result.Functions, 2)
	require.NotNil(t, result.Functions[0].ReturnType)
	assert.Equal(t, "Dict[str, int]", *result.Functions[0].ReturnType)
	assert.Nil(t, result.Functions[1].ReturnType)
}

func TestAnalyze_ClassMethods(t *testing.T) {
	result := analyzeSource(t, "class Foo:\n  def bar(self): baz.qux()\n  def quux(self): pass\n")

	assert.Empty(t, result.Functions)
	require.Len(t, result.Classes, 1)

	foo := result.Classes[0]
	assert.Equal(t, "Foo", foo.Name)
	require.Len(t, foo.Methods, 2)

	assert.Equal(t, "bar", foo.Methods[0].Name)
	assert.Equal(t, []ParameterInfo{{Name: "self"}}, foo.Methods[0].Parameters)
	assert.Equal(t, []FunctionCall{qualified("baz", "qux")}, callsOf(t, foo.Methods[0]))

	assert.Equal(t, "quux", foo.Methods[1].Name)
	assert.Empty(t, callsOf(t, foo.Methods[1]))
}

func TestAnalyze_ChainedCalleeKeepsTwoSegments(t *testing.T) {
	result := analyzeSource(t, "def f():\n    a.b.c()\n")

	require.Len(t, result.Functions, 1)
	assert.Equal(t, []FunctionCall{qualified("a", "b")}, callsOf(t, result.Functions[0]))
}

func TestAnalyze_CallsInPreOrder(t *testing.T) {
	source := `def f():
    outer(inner(x), obj.method(deep()))
    foo().bar()
    handler = lambda: later()
    return [make(i) for i in items]
`
	result := analyzeSource(t, source)

	require.Len(t, result.Functions, 1)
	assert.Equal(t, []FunctionCall{
		bare("outer"),
		bare("inner"),
		qualified("obj", "method"),
		bare("deep"),
		qualified("foo()", "bar"),
		bare("foo"),
		bare("later"),
		bare("make"),
	}, callsOf(t, result.Functions[0]))
}

func TestAnalyze_ModuleLevelCallsAreNotRecorded(t *testing.T) {
	result := analyzeSource(t, "setup()\n\ndef f():\n    pass\n\nif __name__ == \"__main__\":\n    f()\n")

	require.Len(t, result.Functions, 1)
	assert.Empty(t, callsOf(t, result.Functions[0]))
}

func TestAnalyze_NestedFunctionsAreNotDeclarations(t *testing.T) {
	source := `def outer():
    def inner():
        helper()
    inner()

class C:
    def method(self):
        def local():
            pass
        return local()
`
	result := analyzeSource(t, source)

	assert.Equal(t, []string{"outer"}, functionNames(result.Functions))
	assert.Equal(t, []FunctionCall{bare("helper"), bare("inner")}, callsOf(t, result.Functions[0]))

	require.Len(t, result.Classes, 1)
	assert.Equal(t, []string{"method"}, functionNames(result.Classes[0].Methods))
}

func TestAnalyze_NestedClassIsTopLevelAndFollowsItsBody(t *testing.T) {
	source := `class Outer:
    def first(self):
        pass

    class Inner:
        def inner_method(self):
            pass

    def second(self):
        pass
`
	result := analyzeSource(t, source)

	assert.Empty(t, result.Functions)
	require.Len(t, result.Classes, 2)

	assert.Equal(t, "Inner", result.Classes[0].Name)
	assert.Equal(t, []string{"inner_method"}, functionNames(result.Classes[0].Methods))

	assert.Equal(t, "Outer", result.Classes[1].Name)
	assert.Equal(t, []string{"first", "second"}, functionNames(result.Classes[1].Methods))
}

func TestAnalyze_DecoratedAndConditionalDefinitions(t *testing.T) {
	source := `@decorator
def decorated():
    pass

if sys.version_info >= (3, 8):
    def modern():
        pass
else:
    def legacy():
        pass

@dataclass
class Model:
    @staticmethod
    def build():
        pass

    if DEBUG:
        def debug(self):
            pass
`
	result := analyzeSource(t, source)

	assert.Equal(t, []string{"decorated", "modern", "legacy"}, functionNames(result.Functions))
	require.Len(t, result.Classes, 1)
	assert.Equal(t, "Model", result.Classes[0].Name)
	assert.Equal(t, []string{"build", "debug"}, functionNames(result.Classes[0].Methods))
}

func TestAnalyze_ImportForms(t *testing.T) {
	source := `import os, sys.path
import numpy as np
from . import sibling
from ..pkg.mod import thing
from a import b

class Lazy:
    import json

def f():
    import ignored_inside_function
`
	result := analyzeSource(t, source)

	names := make([]string, 0, len(result.Imports))
	for _, imp := range result.Imports {
		names = append(names, imp.Name)
	}
	assert.Equal(t, []string{"os", "sys.path", "numpy", ".", "..pkg.mod", "a", "json"}, names)
}

func TestAnalyze_ResolvesImportsAgainstRoots(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "helpers.py"), []byte("def h():\n    pass\n"), 0o644))
	current := filepath.Join(tmp, "main.py")

	analyzer := NewAnalyzer(nil, resolve.NewResolver(tmp))
	result, err := analyzer.Analyze(context.Background(), []byte("import helpers\nimport missing\nfrom .helpers import h\n"), current)
	require.NoError(t, err)

	require.Len(t, result.Imports, 3)

	want, err := filepath.EvalSymlinks(filepath.Join(tmp, "helpers.py"))
	require.NoError(t, err)

	require.NotNil(t, result.Imports[0].Path)
	assert.Equal(t, want, *result.Imports[0].Path)
	assert.Nil(t, result.Imports[1].Path)
	require.NotNil(t, result.Imports[2].Path)
	assert.Equal(t, want, *result.Imports[2].Path)
}

func TestAnalyze_SyntaxErrorsYieldPartialResult(t *testing.T) {
	source := "def ok(a):\n    run()\n\ndef broken(:\n    pass\n\nclass Fine:\n    def m(self):\n        pass\n"
	result := analyzeSource(t, source)

	assert.Contains(t, functionNames(result.Functions), "ok")
}

func TestAnalyze_EmptySource(t *testing.T) {
	result := analyzeSource(t, "")

	assert.NotNil(t, result.Imports)
	assert.NotNil(t, result.Functions)
	assert.NotNil(t, result.Classes)
	assert.Zero(t, result.FunctionCount())
}

func TestAnalyze_MathFixture(t *testing.T) {
	content, err := os.ReadFile(filepath.Join("testdata", "math.py"))
	require.NoError(t, err)

	result, err := NewAnalyzer(nil, nil).Analyze(context.Background(), content, "math.py")
	require.NoError(t, err)

	require.Len(t, result.Imports, 1)
	assert.Equal(t, "math", result.Imports[0].Name)

	assert.Equal(t, []string{"area_of_circle", "hypotenuse", "volume"}, functionNames(result.Functions))

	area := result.Functions[0]
	assert.Equal(t, []ParameterInfo{{Name: "r", Default: strPtr("0")}}, area.Parameters)
	assert.Empty(t, callsOf(t, area))

	hyp := result.Functions[1]
	assert.Equal(t, []ParameterInfo{
		{Name: "a", Type: strPtr("int")},
		{Name: "b", Type: strPtr("str"), Default: strPtr(`"hola"`)},
	}, hyp.Parameters)
	require.NotNil(t, hyp.ReturnType)
	assert.Equal(t, "float", *hyp.ReturnType)
	assert.Equal(t, []FunctionCall{qualified("math", "sqrt")}, callsOf(t, hyp))

	vol := result.Functions[2]
	assert.Equal(t, []ParameterInfo{
		{Name: "a"},
		{Name: "b", Type: strPtr("int")},
		{Name: "c", Type: strPtr("int"), Default: strPtr("0")},
		{Name: "d", Default: strPtr("2")},
	}, vol.Parameters)

	require.Len(t, result.Classes, 1)
	geometry := result.Classes[0]
	assert.Equal(t, "Geometry", geometry.Name)
	assert.Equal(t, []string{"__init__", "describe"}, functionNames(geometry.Methods))
	assert.Equal(t, []ParameterInfo{{Name: "self"}, {Name: "shape_name", Type: strPtr("str")}}, geometry.Methods[0].Parameters)
	assert.Equal(t, []FunctionCall{bare("print")}, callsOf(t, geometry.Methods[1]))
}

func TestAnalyze_EveryDeclarationCountedOnce(t *testing.T) {
	source := `def a(): pass
class K:
    def b(self): pass
    class L:
        def c(self): pass
    def d(self): pass
def e(): pass
`
	result := analyzeSource(t, source)

	seen := make(map[string]int)
	for _, fn := range result.Functions {
		seen[fn.Name]++
	}
	for _, c := range result.Classes {
		for _, m := range c.Methods {
			seen[m.Name]++
		}
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1, "d": 1, "e": 1}, seen)
	assert.Equal(t, 5, result.FunctionCount())
}

func TestAnalyzeTree_NilRoot(t *testing.T) {
	result := AnalyzeTree(nil, nil, "x.py", nil)
	require.NotNil(t, result)
	assert.Empty(t, result.Imports)
}
