// Package keystream derives the fixed 8x4 key matrix used by the shard encoder.
//
// A matrix is a pure function of its seed and hash: the same seed always yields
// byte-identical rows, across processes and runs. Matrices are values; callers
// receive copies and can never mutate the matrix held by an encoder.
package keystream
