// Package keys signs shard registration receipts.
//
// Public keys are rendered as "<alg>:" + base64(key bytes) and signatures as
// base64. Messages are hashed with the signer's hash algorithm before signing,
// so the same digest is verified regardless of message size.
package keys
