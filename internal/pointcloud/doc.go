// Package pointcloud owns the in-memory point cloud data model.
//
// A PointCloud has three sections: per-point attributes (x, y, z are
// mandatory, everything else is optional and added over the cloud's
// lifetime), cloud-level metadata that is not indexed per point, and an
// append-only provenance trail describing each processing step.
//
// Invariant: every attribute under Points has the same length N. An
// attribute missing from Points means "not computed", which is distinct
// from an attribute that is present but holds NaN.
//
// The JSON form produced by Save and consumed by Load is the only wire
// format of the package; NaN values are written as null.
package pointcloud
