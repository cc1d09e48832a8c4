// Package dag builds the UnixFS/DAG-PB Merkle DAG that gives an uploaded
// file its content-addressed identity: leaf nodes wrap raw block bytes,
// root nodes link an ordered list of children, and every node's CID is
// derived from its encoded protobuf bytes.
package dag

import (
	"fmt"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// Codec identifies the multicodec a CID's target bytes are interpreted
// under.
type Codec uint64

const (
	// CodecDagPB is the codec for DAG-PB encoded internal/leaf nodes.
	CodecDagPB Codec = 0x70
	// CodecRaw is the codec for raw, unwrapped leaf bytes. Never produced
	// on write by this package (spec mandates dag-pb leaves); recognized
	// on read.
	CodecRaw Codec = 0x55
)

// CID is a CIDv1, sha2-256 multihash, content identifier. It is the single
// value type every chunk/block/file identity in the SDK is expressed as —
// callers never touch the underlying bytes or hash algorithm directly.
type CID struct {
	inner cid.Cid
}

// NewCID derives a CIDv1 over data under the given codec.
func NewCID(codec Codec, data []byte) (CID, error) {
	digest, err := mh.Sum(data, mh.SHA2_256, -1)
	if err != nil {
		return CID{}, fmt.Errorf("dag: multihash sum: %w", err)
	}
	return CID{inner: cid.NewCidV1(uint64(codec), digest)}, nil
}

// ParseCID decodes a textual CID (base32-lower, "b" prefix). Binary CIDs are
// decoded by CIDFromBytes.
func ParseCID(s string) (CID, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return CID{}, fmt.Errorf("dag: parse cid %q: %w", s, err)
	}
	return CID{inner: c}, nil
}

// CIDFromBytes decodes a binary-encoded CID.
func CIDFromBytes(b []byte) (CID, error) {
	c, err := cid.Cast(b)
	if err != nil {
		return CID{}, fmt.Errorf("dag: cast cid: %w", err)
	}
	return CID{inner: c}, nil
}

// Bytes returns the CID's binary form.
func (c CID) Bytes() []byte { return c.inner.Bytes() }

// String returns the CID's textual form (base32-lower, "b" prefix for v1).
func (c CID) String() string { return c.inner.String() }

// Codec reports which multicodec the CID's target is encoded under.
func (c CID) Codec() Codec { return Codec(c.inner.Type()) }

// IsZero reports whether this is the zero-value CID (not a real hash).
func (c CID) IsZero() bool { return !c.inner.Defined() }

// Equal reports whether two CIDs identify the same content.
func (c CID) Equal(other CID) bool { return c.inner.Equals(other.inner) }
