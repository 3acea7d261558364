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

// Parameter node kinds in tree-sitter-python.
const (
	pyNodeIdentifier            = "identifier"
	pyNodeDefaultParameter      = "default_parameter"
	pyNodeTypedParameter        = "typed_parameter"
	pyNodeTypedDefaultParameter = "typed_default_parameter"
	pyNodeType                  = "type"
)

// decodeParameters decodes the parameters field of a function_definition.
//
// Description:
//
//	Named children of the parameter list are decoded in source order. The
//	four recognized shapes are plain identifiers, default parameters, typed
//	parameters, and typed default parameters. Everything else (splats,
//	separators, comments, error nodes) is skipped. Missing fields degrade to
//	absent values and never abort decoding.
//
// Outputs:
//   - []ParameterInfo: Never nil; empty when the function has no parameters
//     field.
func decodeParameters(fn *sitter.Node, content []byte) []ParameterInfo {
	params := make([]ParameterInfo, 0)

	paramsNode := fn.ChildByFieldName("parameters")
	if paramsNode == nil {
		return params
	}

	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		child := paramsNode.NamedChild(i)
		if child == nil {
			continue
		}
		if param, ok := decodeParameter(child, content); ok {
			params = append(params, param)
		}
	}
	return params
}

func decodeParameter(node *sitter.Node, content []byte) (ParameterInfo, bool) {
	switch node.Type() {
	case pyNodeIdentifier:
		return ParameterInfo{Name: nodeText(node, content)}, true

	case pyNodeDefaultParameter:
		name := node.ChildByFieldName("name")
		if name == nil {
			return ParameterInfo{}, false
		}
		return ParameterInfo{
			Name:    nodeText(name, content),
			Default: optionalFieldText(node, "value", content),
		}, true

	case pyNodeTypedParameter:
		return decodeTypedParameter(node, content)

	case pyNodeTypedDefaultParameter:
		name := node.ChildByFieldName("name")
		if name == nil {
			return ParameterInfo{}, false
		}
		return ParameterInfo{
			Name:    nodeText(name, content),
			Type:    trimmedFieldText(node, "type", content),
			Default: optionalFieldText(node, "value", content),
		}, true
	}
	return ParameterInfo{}, false
}

// decodeTypedParameter handles "name: type". The grammar does not put the
// name behind a field, so the inner identifier is found by kind. Typed
// splats ("*args: int") have no identifier child and keep the pattern text.
func decodeTypedParameter(node *sitter.Node, content []byte) (ParameterInfo, bool) {
	var param ParameterInfo
	var fallback string

	for i := 0; i < int(node.NamedChildCount()); i++ {
		sub := node.NamedChild(i)
		if sub == nil {
			continue
		}
		switch sub.Type() {
		case pyNodeIdentifier:
			if param.Name == "" {
				param.Name = nodeText(sub, content)
			}
		case pyNodeType:
			if t := strings.TrimSpace(nodeText(sub, content)); t != "" {
				param.Type = &t
			}
		default:
			if fallback == "" {
				fallback = nodeText(sub, content)
			}
		}
	}

	if param.Name == "" {
		param.Name = fallback
	}
	if param.Name == "" {
		return ParameterInfo{}, false
	}
	return param, true
}

// nodeText copies the node's source bytes into an owned string.
func nodeText(node *sitter.Node, content []byte) string {
	start, end := node.StartByte(), node.EndByte()
	if end > uint32(len(content)) || start > end {
		return ""
	}
	return string(content[start:end])
}

func optionalFieldText(node *sitter.Node, field string, content []byte) *string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return nil
	}
	return strPtr(nodeText(child, content))
}

func trimmedFieldText(node *sitter.Node, field string, content []byte) *string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return nil
	}
	t := strings.TrimSpace(nodeText(child, content))
	if t == "" {
		return nil
	}
	return &t
}
