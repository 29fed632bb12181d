// Package flowgraph maps a logical pipeline.Definition to the positional
// graph consumed by a renderer, and back. The mapping is stateless.
//
// Layout is not computed here: every visual node starts at the origin and an
// external layout engine positions it. Positions are dropped on the way back
// because the logical model carries none.
package flowgraph
