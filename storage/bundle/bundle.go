// Package bundle moves stored shards between stores as a deterministic TAR
// archive, optionally zstd-compressed.
//
// Layout:
//
//	shards/<cid>   the shard bit string, one entry per CID
//	index.json     optional, non-authoritative listing with shard identifiers
//
// Import trusts nothing in the archive: every entry is re-hashed against its
// name before it reaches the destination store.
package bundle

import (
	"archive/tar"
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"
	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/zstd"

	"xdao.co/shard/cidutil"
	"xdao.co/shard/storage"
)

// FormatVersion is the current index schema version.
const FormatVersion = 1

const (
	shardPrefix = "shards/"
	indexName   = "index.json"
)

var epoch0 = time.Unix(0, 0).UTC()

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

type Compression int

const (
	CompressionNone Compression = iota
	CompressionZstd
)

// ExportOptions controls bundle export behavior.
type ExportOptions struct {
	// Labels is optional metadata mapping names to CIDs. It is written to the
	// index only.
	Labels map[string]cid.Cid
	// IncludeIndex controls whether index.json is written.
	IncludeIndex bool
	Compression  Compression
}

// Export writes the shards for ids from cas. Entry order is lexicographic by
// CID, duplicates are collapsed and TAR headers are normalized, so equal inputs
// give equal bytes. Every shard is verified against its CID before it is written.
func Export(w io.Writer, cas storage.CAS, ids []cid.Cid, opts ExportOptions) (err error) {
	if cas == nil {
		return fmt.Errorf("bundle: nil CAS")
	}

	uniq := make(map[string]cid.Cid, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return storage.ErrInvalidCID
		}
		uniq[id.String()] = id
	}
	names := make([]string, 0, len(uniq))
	for s := range uniq {
		names = append(names, s)
	}
	sort.Strings(names)

	out := w
	if opts.Compression == CompressionZstd {
		zw, zerr := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
		if zerr != nil {
			return zerr
		}
		defer func() {
			if cerr := zw.Close(); err == nil {
				err = cerr
			}
		}()
		out = zw
	}

	tw := tar.NewWriter(out)
	entries := make([]indexEntry, 0, len(names))
	for _, s := range names {
		id := uniq[s]
		b, gerr := cas.Get(id)
		if gerr != nil {
			_ = tw.Close()
			return fmt.Errorf("bundle: %s: %w", s, gerr)
		}
		if verr := cidutil.Verify(id, b); verr != nil {
			_ = tw.Close()
			return storage.ErrCIDMismatch
		}
		if werr := writeFile(tw, shardPrefix+s, b); werr != nil {
			_ = tw.Close()
			return werr
		}
		e := indexEntry{CID: s, Bits: len(b)}
		if sid, ierr := cidutil.ToIdentifier(id); ierr == nil {
			e.ID = sid.String()
		}
		entries = append(entries, e)
	}

	if opts.IncludeIndex {
		b, ierr := marshalIndex(entries, opts.Labels)
		if ierr != nil {
			_ = tw.Close()
			return ierr
		}
		if werr := writeFile(tw, indexName, b); werr != nil {
			_ = tw.Close()
			return werr
		}
	}
	return tw.Close()
}

// ImportOptions controls bundle import behavior.
type ImportOptions struct {
	// IgnoreUnknown skips entries outside the bundle layout instead of failing.
	IgnoreUnknown bool
}

// Import reads a bundle from r into cas, failing on unknown entries. Compressed
// bundles are detected by their zstd magic number.
func Import(r io.Reader, cas storage.CAS) ([]cid.Cid, error) {
	return ImportWithOptions(r, cas, ImportOptions{})
}

// ImportWithOptions is Import with options. It returns the CIDs written in
// archive order.
func ImportWithOptions(r io.Reader, cas storage.CAS, opts ImportOptions) ([]cid.Cid, error) {
	if cas == nil {
		return nil, fmt.Errorf("bundle: nil CAS")
	}

	br := bufio.NewReader(r)
	src := io.Reader(br)
	if magic, _ := br.Peek(len(zstdMagic)); bytes.Equal(magic, zstdMagic) {
		zr, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		src = zr
	}

	tr := tar.NewReader(src)
	seen := map[string]struct{}{}
	var imported []cid.Cid
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return imported, nil
		}
		if err != nil {
			return imported, err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return imported, fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}

		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return imported, fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", h.Typeflag, name)
		}

		if name == indexName {
			_, _ = io.Copy(io.Discard, tr)
			continue
		}
		if !strings.HasPrefix(name, shardPrefix) {
			if opts.IgnoreUnknown {
				_, _ = io.Copy(io.Discard, tr)
				continue
			}
			return imported, fmt.Errorf("bundle: unknown entry: %s", name)
		}

		id, derr := cid.Decode(strings.TrimPrefix(name, shardPrefix))
		if derr != nil || !id.Defined() {
			return imported, storage.ErrInvalidCID
		}
		key := id.String()
		if _, ok := seen[key]; ok {
			return imported, fmt.Errorf("bundle: duplicate shard entry: %s", key)
		}
		seen[key] = struct{}{}

		data, rerr := io.ReadAll(tr)
		if rerr != nil {
			return imported, rerr
		}
		if err := cidutil.Verify(id, data); err != nil {
			return imported, storage.ErrCIDMismatch
		}
		putID, perr := cas.Put(data)
		if perr != nil {
			return imported, perr
		}
		if !putID.Equals(id) {
			return imported, storage.ErrCIDMismatch
		}
		imported = append(imported, id)
	}
}

type indexJSON struct {
	Version   int          `json:"version"`
	CIDCodec  string       `json:"cidCodec"`
	Multihash string       `json:"multihash"`
	Shards    []indexEntry `json:"shards"`
	Labels    []indexLabel `json:"labels,omitempty"`
}

type indexEntry struct {
	CID  string `json:"cid"`
	ID   string `json:"id,omitempty"`
	Bits int    `json:"bits"`
}

type indexLabel struct {
	Name string `json:"name"`
	CID  string `json:"cid"`
}

func marshalIndex(entries []indexEntry, labels map[string]cid.Cid) ([]byte, error) {
	idx := indexJSON{
		Version:   FormatVersion,
		CIDCodec:  "raw",
		Multihash: "blake2b-512",
		Shards:    entries,
	}
	if len(labels) > 0 {
		keys := make([]string, 0, len(labels))
		for k := range labels {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if k == "" {
				return nil, fmt.Errorf("bundle: empty label key")
			}
			v := labels[k]
			if !v.Defined() {
				return nil, storage.ErrInvalidCID
			}
			idx.Labels = append(idx.Labels, indexLabel{Name: k, CID: v.String()})
		}
	}
	// Struct and slice fields only, so the output is deterministic.
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(idx)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := tw.Write(content)
	return err
}

func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}
	parts := strings.Split(name, "/")
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
