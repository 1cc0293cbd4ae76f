package model

// Receipt is returned by a ledger registration. TxID is the shard identifier
// ("0x" + hex digest) and ShardSize the number of bit characters.
type Receipt struct {
	TxID      string     `json:"txId"`
	ShardSize int        `json:"shardSize"`
	Hash      string     `json:"hash,omitempty"`
	CID       string     `json:"cid,omitempty"`
	Signature *Signature `json:"signature,omitempty"`
}

// Signature signs the UTF-8 bytes of Receipt.TxID.
type Signature struct {
	Alg       string `json:"alg"`
	HashAlg   string `json:"hashAlg"`
	PublicKey string `json:"publicKey"`
	Value     string `json:"value"`
}

// MatrixView renders a derived matrix: eight rows of four hex-encoded bytes
// and the folded key byte of each row.
type MatrixView struct {
	Hash     string   `json:"hash"`
	Rows     []string `json:"rows"`
	KeyBytes []int    `json:"keyBytes"`
}

// EncodeResult is the output of encoding one payload.
type EncodeResult struct {
	Canonical string `json:"canonical,omitempty"`
	Bits      string `json:"bits"`
	ID        string `json:"id"`
	ShardSize int    `json:"shardSize"`
	CID       string `json:"cid,omitempty"`
}

// LookupResult is a fetched and verified shard with its decoded payload.
type LookupResult struct {
	TxID      string `json:"txId"`
	CID       string `json:"cid"`
	ShardSize int    `json:"shardSize"`
	Canonical string `json:"canonical"`
}
