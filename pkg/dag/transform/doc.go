// Package transform provides graph transformations built on top of the
// acyclicity checker in package dag.
//
// # Cycle Breaking
//
// [BreakCycles] removes the back edges found by a depth-first search so that
// the rest of a cyclic pipeline can still be analysed. It returns a new graph
// and leaves its input untouched.
//
// # Stages
//
// [Stages] groups the nodes of an acyclic graph into execution stages: a node
// sits one stage after the latest of its parents, so every stage only depends
// on earlier ones. A pipeline editor can use this to show which nodes are
// able to run side by side.
//
//	g := dag.NewGraph(
//	    []string{"input", "llm", "text", "output"},
//	    []dag.Edge{{From: "input", To: "llm"}, {From: "text", To: "llm"}, {From: "llm", To: "output"}},
//	)
//	stages, _ := transform.Stages(g)
//	// [[input text] [llm] [output]]
package transform
