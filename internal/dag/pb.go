package dag

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// DAG-PB field numbers (github.com/ipfs/go-merkledag's pb.PBNode shape):
//
//	message PBLink { optional bytes Hash = 1; optional string Name = 2; optional uint64 Tsize = 3; }
//	message PBNode { repeated PBLink Links = 2; optional bytes Data = 1; }
const (
	fieldLinkHash  = 1
	fieldLinkName  = 2
	fieldLinkTsize = 3

	fieldNodeData  = 1
	fieldNodeLinks = 2
)

// UnixFS Data field numbers.
const (
	fieldUnixFSType       = 1
	fieldUnixFSData       = 2
	fieldUnixFSFilesize   = 3
	fieldUnixFSBlocksizes = 4
)

// unixFSTypeFile is the UnixFS Type enum value for a regular file.
const unixFSTypeFile = 2

// link is one ordered child reference in a DAG-PB node.
type link struct {
	Hash  []byte
	Name  string
	Tsize uint64
}

// marshalLink encodes a single PBLink message (Hash, Name, Tsize — in that
// field-number order; this is a nested message so ordinary numeric field
// order applies).
func marshalLink(l link) []byte {
	var b []byte
	if len(l.Hash) > 0 {
		b = protowire.AppendTag(b, fieldLinkHash, protowire.BytesType)
		b = protowire.AppendBytes(b, l.Hash)
	}
	// Name is always present, even empty, so link order is unambiguous on
	// the wire for zero-length names.
	b = protowire.AppendTag(b, fieldLinkName, protowire.BytesType)
	b = protowire.AppendString(b, l.Name)
	b = protowire.AppendTag(b, fieldLinkTsize, protowire.VarintType)
	b = protowire.AppendVarint(b, l.Tsize)
	return b
}

func unmarshalLink(b []byte) (link, error) {
	var l link
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return link{}, fmt.Errorf("dag: malformed link tag")
		}
		b = b[n:]
		switch num {
		case fieldLinkHash:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return link{}, fmt.Errorf("dag: malformed link hash")
			}
			l.Hash = append([]byte(nil), v...)
			b = b[n:]
		case fieldLinkName:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return link{}, fmt.Errorf("dag: malformed link name")
			}
			l.Name = v
			b = b[n:]
		case fieldLinkTsize:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return link{}, fmt.Errorf("dag: malformed link tsize")
			}
			l.Tsize = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return link{}, fmt.Errorf("dag: malformed link field %d", num)
			}
			b = b[n:]
		}
	}
	return l, nil
}

// marshalPBNode encodes a DAG-PB node. Field order on the wire MUST be
// Links-then-Data — the reverse of field-number order — to match the
// canonical dag-pb byte layout CIDs are derived from.
func marshalPBNode(data []byte, links []link) []byte {
	var b []byte
	for _, l := range links {
		encoded := marshalLink(l)
		b = protowire.AppendTag(b, fieldNodeLinks, protowire.BytesType)
		b = protowire.AppendBytes(b, encoded)
	}
	if len(data) > 0 {
		b = protowire.AppendTag(b, fieldNodeData, protowire.BytesType)
		b = protowire.AppendBytes(b, data)
	}
	return b
}

func unmarshalPBNode(b []byte) (data []byte, links []link, err error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, nil, fmt.Errorf("dag: malformed node tag")
		}
		b = b[n:]
		switch num {
		case fieldNodeData:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, nil, fmt.Errorf("dag: malformed node data")
			}
			data = append([]byte(nil), v...)
			b = b[n:]
		case fieldNodeLinks:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, nil, fmt.Errorf("dag: malformed node link")
			}
			l, err := unmarshalLink(v)
			if err != nil {
				return nil, nil, err
			}
			links = append(links, l)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, nil, fmt.Errorf("dag: malformed node field %d", num)
			}
			b = b[n:]
		}
	}
	return data, links, nil
}

// unixFS is the decoded form of a UnixFS Data protobuf message.
type unixFS struct {
	Type       uint64
	Data       []byte
	Filesize   uint64
	Blocksizes []uint64
}

func marshalUnixFS(u unixFS) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldUnixFSType, protowire.VarintType)
	b = protowire.AppendVarint(b, u.Type)
	if len(u.Data) > 0 {
		b = protowire.AppendTag(b, fieldUnixFSData, protowire.BytesType)
		b = protowire.AppendBytes(b, u.Data)
	}
	b = protowire.AppendTag(b, fieldUnixFSFilesize, protowire.VarintType)
	b = protowire.AppendVarint(b, u.Filesize)
	for _, sz := range u.Blocksizes {
		b = protowire.AppendTag(b, fieldUnixFSBlocksizes, protowire.VarintType)
		b = protowire.AppendVarint(b, sz)
	}
	return b
}

func unmarshalUnixFS(b []byte) (unixFS, error) {
	var u unixFS
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return unixFS{}, fmt.Errorf("dag: malformed unixfs tag")
		}
		b = b[n:]
		switch num {
		case fieldUnixFSType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return unixFS{}, fmt.Errorf("dag: malformed unixfs type")
			}
			u.Type = v
			b = b[n:]
		case fieldUnixFSData:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return unixFS{}, fmt.Errorf("dag: malformed unixfs data")
			}
			u.Data = append([]byte(nil), v...)
			b = b[n:]
		case fieldUnixFSFilesize:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return unixFS{}, fmt.Errorf("dag: malformed unixfs filesize")
			}
			u.Filesize = v
			b = b[n:]
		case fieldUnixFSBlocksizes:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return unixFS{}, fmt.Errorf("dag: malformed unixfs blocksizes")
			}
			u.Blocksizes = append(u.Blocksizes, v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return unixFS{}, fmt.Errorf("dag: malformed unixfs field %d", num)
			}
			b = b[n:]
		}
	}
	return u, nil
}
