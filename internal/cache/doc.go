// Package cache keeps synthesized chunks so that re-running a conversion
// with the same engine, voice and text skips the network or subprocess
// round trip. A byte-bounded in-memory LRU (L1) sits in front of a
// zstd-compressed directory (L2) that survives restarts.
package cache
