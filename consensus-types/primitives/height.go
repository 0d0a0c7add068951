package primitives

// Height is the position of a block in its chain, genesis being zero.
type Height uint32
