// Package convergence runs the cleaning pipeline over a music tree pass after
// pass until a pass changes nothing.
//
// Each pass enumerates the tree through the executor, so a simulated run
// (fsops.Overlay plus tags.Overlay) sees the hypothetical result of the
// previous pass exactly as an applied run sees the real one.
package convergence
