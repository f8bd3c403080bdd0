// Package neighborhood turns ragged neighbor-index lists into fixed-shape
// masked tensors.
//
// Given a source point cloud and one list of neighbor indices per target
// point, the gatherer produces a dense (targets, channels, L) array where L
// is the longest neighborhood. Cells past the end of a shorter neighborhood
// hold 0 and are flagged invalid in the mask; reductions must go through
// Tensor.Valid, which filters by the mask, and never read padded cells as
// data.
//
// Building neighborhoods (spatial indexing, nearest-neighbor search) is not
// done here: membership arrives precomputed as index lists.
package neighborhood
