// Package loader reads pipeline definitions from YAML and builds them into
// expressions.
//
// A definition names its input stream and describes the body as a tree of
// nodes. Each node is exactly one of an operator call (op and args), a
// reference to the input (param), a named scalar function (func) or a
// constant (value, optionally typed):
//
//	name: average-of-evens
//	input:
//	  name: xs
//	  type: int
//	body:
//	  op: Average
//	  args:
//	    - op: Where
//	      args:
//	        - param: xs
//	        - func: isEven
//
// Definitions are looked up by name as {name}.yaml or {name}.yml in the
// configured directories and their subdirectories.
package loader
