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

const pyNodeCall = "call"

// collectCalls returns every call expression below body in pre-order.
//
// Description:
//
//	An outer call is emitted before calls nested in its callee or its
//	arguments. Calls inside nested functions, lambdas and comprehensions
//	are included; the body is walked without regard to scope.
//
// Outputs:
//   - []FunctionCall: Never nil.
func collectCalls(body *sitter.Node, content []byte) []FunctionCall {
	calls := make([]FunctionCall, 0)
	if body == nil {
		return calls
	}

	stack := make([]*sitter.Node, 0, 64)
	pushChildren := func(node *sitter.Node) {
		// Reverse order so children pop left to right.
		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			if child := node.Child(i); child != nil {
				stack = append(stack, child)
			}
		}
	}
	pushChildren(body)

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node.Type() == pyNodeCall {
			if callee := node.ChildByFieldName("function"); callee != nil {
				calls = append(calls, splitCallee(nodeText(callee, content)))
			}
		}
		pushChildren(node)
	}
	return calls
}

// splitCallee applies the two-segment rule to a callee expression.
//
// "f" yields name f. "a.b" yields qualifier a, name b. Longer chains keep
// only the first two segments: "a.b.c" yields qualifier a, name b. An empty
// head segment yields no qualifier.
func splitCallee(callee string) FunctionCall {
	head, rest, dotted := strings.Cut(callee, ".")
	if !dotted {
		return FunctionCall{Name: callee}
	}

	name, _, _ := strings.Cut(rest, ".")
	call := FunctionCall{Name: name}
	if head != "" {
		call.Qualifier = strPtr(head)
	}
	return call
}
