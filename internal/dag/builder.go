package dag

import "fmt"

// Link is one ordered child of a root node, as returned by Build and
// consumed by callers that assemble a file-level DAG out of per-chunk
// roots.
type Link struct {
	CID   CID
	Tsize uint64
}

// Node is a built DAG-PB node: its CID, the raw bytes it was encoded from,
// and its size accounting.
type Node struct {
	CID CID
	// Bytes is the encoded protobuf for this node (what NewCID hashed).
	Bytes []byte
	// RawSize is the UnixFS filesize field: total unencoded payload size.
	RawSize uint64
	// EncodedSize is len(Bytes) for a leaf, or sum(Tsize) of children for
	// an internal (root) node.
	EncodedSize uint64
}

// BuildLeaf wraps raw bytes as a single UnixFS file leaf: DAG-PB node with
// Data={Type=File, Data=bytes, filesize=len(bytes)} and no links. CID codec
// is always dag-pb — raw-codec leaves are recognized on read, never
// produced here.
func BuildLeaf(data []byte) (Node, error) {
	u := marshalUnixFS(unixFS{
		Type:     unixFSTypeFile,
		Data:     data,
		Filesize: uint64(len(data)),
	})
	encoded := marshalPBNode(u, nil)
	cid, err := NewCID(CodecDagPB, encoded)
	if err != nil {
		return Node{}, fmt.Errorf("dag: build leaf: %w", err)
	}
	return Node{
		CID:         cid,
		Bytes:       encoded,
		RawSize:     uint64(len(data)),
		EncodedSize: uint64(len(encoded)),
	}, nil
}

// BuildRoot links an ordered list of children into a root DAG-PB node. Data
// is {Type=File, filesize=totalRawSize, blocksizes=[rawSize_i]}; each link's
// Tsize is the child's encoded size and Name is always "".
func BuildRoot(children []Node) (Node, error) {
	if len(children) == 0 {
		return Node{}, fmt.Errorf("dag: build root: no children")
	}

	links := make([]link, len(children))
	blocksizes := make([]uint64, len(children))
	var totalRaw, totalEncoded uint64
	for i, c := range children {
		links[i] = link{Hash: c.CID.Bytes(), Name: "", Tsize: c.EncodedSize}
		blocksizes[i] = c.RawSize
		totalRaw += c.RawSize
		totalEncoded += c.EncodedSize
	}

	u := marshalUnixFS(unixFS{
		Type:       unixFSTypeFile,
		Filesize:   totalRaw,
		Blocksizes: blocksizes,
	})
	encoded := marshalPBNode(u, links)
	cid, err := NewCID(CodecDagPB, encoded)
	if err != nil {
		return Node{}, fmt.Errorf("dag: build root: %w", err)
	}
	return Node{
		CID:         cid,
		Bytes:       encoded,
		RawSize:     totalRaw,
		EncodedSize: totalEncoded,
	}, nil
}

// BuildFromBytes implements the full leaf-vs-root decision: if data fits in
// a single blockSize-sized leaf, it is returned as a leaf; otherwise data is
// sliced into ≤blockSize leaves (built and addressed independently) and
// wrapped in a root node referencing them in order.
func BuildFromBytes(data []byte, blockSize int) (Node, []Node, error) {
	if blockSize <= 0 {
		return Node{}, nil, fmt.Errorf("dag: build from bytes: blockSize must be positive")
	}
	if len(data) <= blockSize {
		leaf, err := BuildLeaf(data)
		if err != nil {
			return Node{}, nil, err
		}
		return leaf, []Node{leaf}, nil
	}

	var leaves []Node
	for offset := 0; offset < len(data); offset += blockSize {
		end := offset + blockSize
		if end > len(data) {
			end = len(data)
		}
		leaf, err := BuildLeaf(data[offset:end])
		if err != nil {
			return Node{}, nil, err
		}
		leaves = append(leaves, leaf)
	}

	root, err := BuildRoot(leaves)
	if err != nil {
		return Node{}, nil, err
	}
	return root, leaves, nil
}

// ExtractBlockData undoes BuildLeaf for a dag-pb leaf, returning its UnixFS
// Data field. For a raw-codec leaf, bytes is the payload as-is — raw leaves
// carry no wrapping to unwind.
func ExtractBlockData(cid CID, bytes []byte) ([]byte, error) {
	switch cid.Codec() {
	case CodecRaw:
		return bytes, nil
	case CodecDagPB:
		data, _, err := unmarshalPBNode(bytes)
		if err != nil {
			return nil, fmt.Errorf("dag: extract block data: %w", err)
		}
		u, err := unmarshalUnixFS(data)
		if err != nil {
			return nil, fmt.Errorf("dag: extract block data: unixfs: %w", err)
		}
		return u.Data, nil
	default:
		return nil, fmt.Errorf("dag: extract block data: unsupported codec %x", uint64(cid.Codec()))
	}
}
