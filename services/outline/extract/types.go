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

// AnalysisResult is the summary of one Python source file.
//
// Each list is in source order. Absent optionals are nil and serialize as
// explicit nulls.
type AnalysisResult struct {
	Imports   []ImportInfo   `json:"imports" yaml:"imports"`
	Functions []FunctionInfo `json:"functions" yaml:"functions"`
	Classes   []ClassInfo    `json:"classes" yaml:"classes"`
}

// NewAnalysisResult returns an empty result whose lists serialize as [].
func NewAnalysisResult() *AnalysisResult {
	return &AnalysisResult{
		Imports:   make([]ImportInfo, 0),
		Functions: make([]FunctionInfo, 0),
		Classes:   make([]ClassInfo, 0),
	}
}

// ImportInfo is one imported module.
type ImportInfo struct {
	// Name is the module as written after the import (or from) keyword.
	Name string `json:"name" yaml:"name"`

	// Path is the canonical location of the module, nil when unresolved.
	Path *string `json:"path" yaml:"path"`
}

// ClassInfo is a class and the functions declared directly in its body.
type ClassInfo struct {
	Name    string         `json:"name" yaml:"name"`
	Methods []FunctionInfo `json:"methods" yaml:"methods"`
}

// FunctionInfo is a function or method signature plus its outgoing calls.
type FunctionInfo struct {
	Name       string          `json:"name" yaml:"name"`
	Parameters []ParameterInfo `json:"parameters" yaml:"parameters"`
	ReturnType *string         `json:"return_type" yaml:"return_type"`

	// Calls is nil only when the definition has no body node.
	Calls *[]FunctionCall `json:"function_calls" yaml:"function_calls"`
}

// ParameterInfo is one declared parameter. Type and Default hold the
// source text verbatim.
type ParameterInfo struct {
	Name    string  `json:"name" yaml:"name"`
	Type    *string `json:"param_type" yaml:"param_type"`
	Default *string `json:"default_value" yaml:"default_value"`
}

// FunctionCall is one call expression found in a function body.
type FunctionCall struct {
	// Name is the called identifier.
	Name string `json:"name" yaml:"name"`

	// Qualifier is the receiver text before the first dot, nil for bare calls.
	Qualifier *string `json:"import_name" yaml:"import_name"`
}

// FunctionCount returns the number of top-level functions and methods.
func (r *AnalysisResult) FunctionCount() int {
	n := len(r.Functions)
	for _, c := range r.Classes {
		n += len(c.Methods)
	}
	return n
}

func strPtr(s string) *string {
	return &s
}
