// Package nodeapi is the storage node's gRPC data-plane client: bucket and
// file metadata RPCs, plus the streaming block upload/download calls. Its
// wire messages are hand-encoded with protowire rather than generated from
// a .proto file — IDL authoring for the node protocol is a collaborator
// concern, not part of this SDK.
package nodeapi

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// wireMessage is implemented by every request/response type so the rawpb
// codec (codec.go) can marshal and unmarshal them without reflection.
type wireMessage interface {
	Marshal() []byte
	Unmarshal([]byte) error
}

// BucketCreateRequest/Response ------------------------------------------------

type BucketCreateRequest struct{ Name string }

func (m *BucketCreateRequest) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.Name)
	return b
}
func (m *BucketCreateRequest) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		if num == 1 {
			m.Name = string(v)
		}
		return nil
	})
}

type BucketView struct {
	ID        string
	Name      string
	CreatedAt int64
}

type BucketCreateResponse struct{ Bucket BucketView }

func (m *BucketCreateResponse) Marshal() []byte { return marshalBucketView(m.Bucket) }
func (m *BucketCreateResponse) Unmarshal(b []byte) error {
	v, err := unmarshalBucketView(b)
	if err != nil {
		return err
	}
	m.Bucket = v
	return nil
}

func marshalBucketView(bv BucketView) []byte {
	var b []byte
	b = appendString(b, 1, bv.ID)
	b = appendString(b, 2, bv.Name)
	b = appendVarint(b, 3, uint64(bv.CreatedAt))
	return b
}

func unmarshalBucketView(b []byte) (BucketView, error) {
	var bv BucketView
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch num {
		case 1:
			bv.ID = string(v)
		case 2:
			bv.Name = string(v)
		case 3:
			bv.CreatedAt = int64(n)
		}
		return nil
	})
	return bv, err
}

// BucketViewRequest/Response, BucketListRequest/Response, BucketDeleteRequest ----

type BucketViewRequest struct{ Name string }

func (m *BucketViewRequest) Marshal() []byte { var b []byte; return appendString(b, 1, m.Name) }
func (m *BucketViewRequest) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		if num == 1 {
			m.Name = string(v)
		}
		return nil
	})
}

type BucketViewResponse struct{ Bucket BucketView }

func (m *BucketViewResponse) Marshal() []byte { return marshalBucketView(m.Bucket) }
func (m *BucketViewResponse) Unmarshal(b []byte) error {
	v, err := unmarshalBucketView(b)
	m.Bucket = v
	return err
}

type BucketListRequest struct{}

func (m *BucketListRequest) Marshal() []byte         { return nil }
func (m *BucketListRequest) Unmarshal([]byte) error  { return nil }

type BucketListResponse struct{ Buckets []BucketView }

func (m *BucketListResponse) Marshal() []byte {
	var b []byte
	for _, bv := range m.Buckets {
		b = appendBytes(b, 1, marshalBucketView(bv))
	}
	return b
}
func (m *BucketListResponse) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		if num == 1 {
			bv, err := unmarshalBucketView(v)
			if err != nil {
				return err
			}
			m.Buckets = append(m.Buckets, bv)
		}
		return nil
	})
}

type BucketDeleteRequest struct{ Name string }

func (m *BucketDeleteRequest) Marshal() []byte { var b []byte; return appendString(b, 1, m.Name) }
func (m *BucketDeleteRequest) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		if num == 1 {
			m.Name = string(v)
		}
		return nil
	})
}

type BucketDeleteResponse struct{}

func (m *BucketDeleteResponse) Marshal() []byte        { return nil }
func (m *BucketDeleteResponse) Unmarshal([]byte) error { return nil }

// FileInfo, file metadata RPCs ------------------------------------------------

// FileInfo is the supplemental view type surfaced by FileView/FileList
// (see SPEC_FULL.md's BucketView/FileInfo additions).
type FileInfo struct {
	Bucket      string
	Name        string
	RootCID     []byte
	Size        uint64
	EncodedSize uint64
	Public      bool
	CreatedAt   int64
}

func marshalFileInfo(fi FileInfo) []byte {
	var b []byte
	b = appendString(b, 1, fi.Bucket)
	b = appendString(b, 2, fi.Name)
	b = appendBytes(b, 3, fi.RootCID)
	b = appendVarint(b, 4, fi.Size)
	b = appendVarint(b, 5, fi.EncodedSize)
	b = appendVarint(b, 6, boolToVarint(fi.Public))
	b = appendVarint(b, 7, uint64(fi.CreatedAt))
	return b
}

func unmarshalFileInfo(b []byte) (FileInfo, error) {
	var fi FileInfo
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch num {
		case 1:
			fi.Bucket = string(v)
		case 2:
			fi.Name = string(v)
		case 3:
			fi.RootCID = append([]byte(nil), v...)
		case 4:
			fi.Size = n
		case 5:
			fi.EncodedSize = n
		case 6:
			fi.Public = n != 0
		case 7:
			fi.CreatedAt = int64(n)
		}
		return nil
	})
	return fi, err
}

type FileViewRequest struct{ Bucket, Name string }

func (m *FileViewRequest) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.Bucket)
	b = appendString(b, 2, m.Name)
	return b
}
func (m *FileViewRequest) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch num {
		case 1:
			m.Bucket = string(v)
		case 2:
			m.Name = string(v)
		}
		return nil
	})
}

type FileViewResponse struct{ File FileInfo }

func (m *FileViewResponse) Marshal() []byte { return marshalFileInfo(m.File) }
func (m *FileViewResponse) Unmarshal(b []byte) error {
	v, err := unmarshalFileInfo(b)
	m.File = v
	return err
}

type FileListRequest struct{ Bucket string }

func (m *FileListRequest) Marshal() []byte { var b []byte; return appendString(b, 1, m.Bucket) }
func (m *FileListRequest) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		if num == 1 {
			m.Bucket = string(v)
		}
		return nil
	})
}

type FileListResponse struct{ Files []FileInfo }

func (m *FileListResponse) Marshal() []byte {
	var b []byte
	for _, fi := range m.Files {
		b = appendBytes(b, 1, marshalFileInfo(fi))
	}
	return b
}
func (m *FileListResponse) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		if num == 1 {
			fi, err := unmarshalFileInfo(v)
			if err != nil {
				return err
			}
			m.Files = append(m.Files, fi)
		}
		return nil
	})
}

// BlockDescriptor describes where one block of a download chunk lives.
type BlockDescriptor struct {
	CID         []byte
	NodeAddress string
	NodeID      string
	Permit      []byte
}

func marshalBlockDescriptor(d BlockDescriptor) []byte {
	var b []byte
	b = appendBytes(b, 1, d.CID)
	b = appendString(b, 2, d.NodeAddress)
	b = appendString(b, 3, d.NodeID)
	b = appendBytes(b, 4, d.Permit)
	return b
}

func unmarshalBlockDescriptor(b []byte) (BlockDescriptor, error) {
	var d BlockDescriptor
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch num {
		case 1:
			d.CID = append([]byte(nil), v...)
		case 2:
			d.NodeAddress = string(v)
		case 3:
			d.NodeID = string(v)
		case 4:
			d.Permit = append([]byte(nil), v...)
		}
		return nil
	})
	return d, err
}

// ChunkDescriptor describes one chunk's expected identity ahead of download.
type ChunkDescriptor struct {
	CID         []byte
	Index       uint64
	Size        uint64
	EncodedSize uint64
}

func marshalChunkDescriptor(c ChunkDescriptor) []byte {
	var b []byte
	b = appendBytes(b, 1, c.CID)
	b = appendVarint(b, 2, c.Index)
	b = appendVarint(b, 3, c.Size)
	b = appendVarint(b, 4, c.EncodedSize)
	return b
}

func unmarshalChunkDescriptor(b []byte) (ChunkDescriptor, error) {
	var c ChunkDescriptor
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch num {
		case 1:
			c.CID = append([]byte(nil), v...)
		case 2:
			c.Index = n
		case 3:
			c.Size = n
		case 4:
			c.EncodedSize = n
		}
		return nil
	})
	return c, err
}

type FileDownloadCreateRequest struct{ Bucket, Name string }

func (m *FileDownloadCreateRequest) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.Bucket)
	b = appendString(b, 2, m.Name)
	return b
}
func (m *FileDownloadCreateRequest) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch num {
		case 1:
			m.Bucket = string(v)
		case 2:
			m.Name = string(v)
		}
		return nil
	})
}

// FileDownloadRangeCreateRequest additionally bounds the chunk range
// fetched — it shares the response type with a full download create.
type FileDownloadRangeCreateRequest struct {
	Bucket, Name       string
	StartChunk, EndChunk uint64
}

func (m *FileDownloadRangeCreateRequest) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.Bucket)
	b = appendString(b, 2, m.Name)
	b = appendVarint(b, 3, m.StartChunk)
	b = appendVarint(b, 4, m.EndChunk)
	return b
}
func (m *FileDownloadRangeCreateRequest) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch num {
		case 1:
			m.Bucket = string(v)
		case 2:
			m.Name = string(v)
		case 3:
			m.StartChunk = n
		case 4:
			m.EndChunk = n
		}
		return nil
	})
}

type FileDownloadCreateResponse struct {
	Chunks []ChunkDescriptor
}

func (m *FileDownloadCreateResponse) Marshal() []byte {
	var b []byte
	for _, c := range m.Chunks {
		b = appendBytes(b, 1, marshalChunkDescriptor(c))
	}
	return b
}
func (m *FileDownloadCreateResponse) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		if num == 1 {
			c, err := unmarshalChunkDescriptor(v)
			if err != nil {
				return err
			}
			m.Chunks = append(m.Chunks, c)
		}
		return nil
	})
}

type FileDownloadChunkCreateRequest struct {
	Bucket, Name string
	ChunkIndex   uint64
}

func (m *FileDownloadChunkCreateRequest) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.Bucket)
	b = appendString(b, 2, m.Name)
	b = appendVarint(b, 3, m.ChunkIndex)
	return b
}
func (m *FileDownloadChunkCreateRequest) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch num {
		case 1:
			m.Bucket = string(v)
		case 2:
			m.Name = string(v)
		case 3:
			m.ChunkIndex = n
		}
		return nil
	})
}

type FileDownloadChunkCreateResponse struct {
	Blocks []BlockDescriptor
}

func (m *FileDownloadChunkCreateResponse) Marshal() []byte {
	var b []byte
	for _, d := range m.Blocks {
		b = appendBytes(b, 1, marshalBlockDescriptor(d))
	}
	return b
}
func (m *FileDownloadChunkCreateResponse) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		if num == 1 {
			d, err := unmarshalBlockDescriptor(v)
			if err != nil {
				return err
			}
			m.Blocks = append(m.Blocks, d)
		}
		return nil
	})
}

// PartHeader carries one FileUploadBlock stream's authorization, repeated
// on the first message of the stream only.
type PartHeader struct {
	ChunkCID   []byte
	BlockCID   [32]byte
	BlockIndex uint8
	ChunkIndex uint64
	NodeID     [32]byte
	Signature  [65]byte
	Deadline   uint64
	Nonce      [32]byte
	BucketID   [32]byte
}

// Part is one message of the FileUploadBlock client stream: the first
// carries Header, every message (including the first) carries a Data
// fragment.
type Part struct {
	Header *PartHeader
	Data   []byte
}

func (m *Part) Marshal() []byte {
	var b []byte
	if m.Header != nil {
		h := m.Header
		var hb []byte
		hb = appendBytes(hb, 1, h.ChunkCID)
		hb = appendBytes(hb, 2, h.BlockCID[:])
		hb = appendVarint(hb, 3, uint64(h.BlockIndex))
		hb = appendVarint(hb, 4, h.ChunkIndex)
		hb = appendBytes(hb, 5, h.NodeID[:])
		hb = appendBytes(hb, 6, h.Signature[:])
		hb = appendVarint(hb, 7, h.Deadline)
		hb = appendBytes(hb, 8, h.Nonce[:])
		hb = appendBytes(hb, 9, h.BucketID[:])
		b = appendBytes(b, 1, hb)
	}
	if len(m.Data) > 0 {
		b = appendBytes(b, 2, m.Data)
	}
	return b
}

func (m *Part) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch num {
		case 1:
			h := &PartHeader{}
			err := walk(v, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
				switch num {
				case 1:
					h.ChunkCID = append([]byte(nil), v...)
				case 2:
					copy(h.BlockCID[:], v)
				case 3:
					h.BlockIndex = uint8(n)
				case 4:
					h.ChunkIndex = n
				case 5:
					copy(h.NodeID[:], v)
				case 6:
					copy(h.Signature[:], v)
				case 7:
					h.Deadline = n
				case 8:
					copy(h.Nonce[:], v)
				case 9:
					copy(h.BucketID[:], v)
				}
				return nil
			})
			if err != nil {
				return err
			}
			m.Header = h
		case 2:
			m.Data = append([]byte(nil), v...)
		}
		return nil
	})
}

// Ack is the FileUploadBlock response.
type Ack struct {
	OK    bool
	Error string
}

func (m *Ack) Marshal() []byte {
	var b []byte
	b = appendVarint(b, 1, boolToVarint(m.OK))
	if m.Error != "" {
		b = appendString(b, 2, m.Error)
	}
	return b
}
func (m *Ack) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch num {
		case 1:
			m.OK = n != 0
		case 2:
			m.Error = string(v)
		}
		return nil
	})
}

// FileDownloadBlockRequest requests one block's bytes.
type FileDownloadBlockRequest struct {
	CID         []byte
	NodeID      string
	Permit      []byte
}

func (m *FileDownloadBlockRequest) Marshal() []byte {
	var b []byte
	b = appendBytes(b, 1, m.CID)
	b = appendString(b, 2, m.NodeID)
	b = appendBytes(b, 3, m.Permit)
	return b
}
func (m *FileDownloadBlockRequest) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch num {
		case 1:
			m.CID = append([]byte(nil), v...)
		case 2:
			m.NodeID = string(v)
		case 3:
			m.Permit = append([]byte(nil), v...)
		}
		return nil
	})
}

// BlockChunk is one fragment of a FileDownloadBlock server stream; fragments
// are exactly blockPartSize bytes except the last.
type BlockChunk struct {
	Data []byte
}

func (m *BlockChunk) Marshal() []byte { var b []byte; return appendBytes(b, 1, m.Data) }
func (m *BlockChunk) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		if num == 1 {
			m.Data = append([]byte(nil), v...)
		}
		return nil
	})
}

// --- low-level protowire helpers -------------------------------------------

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func boolToVarint(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

// walk iterates every top-level field of a message, invoking fn with the
// field number, wire type, and — depending on wire type — either the raw
// bytes (BytesType) or the decoded varint (VarintType, as n).
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error) error {
	for len(b) > 0 {
		num, typ, tn := protowire.ConsumeTag(b)
		if tn < 0 {
			return fmt.Errorf("nodeapi: malformed tag")
		}
		b = b[tn:]
		switch typ {
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("nodeapi: malformed bytes field %d", num)
			}
			if err := fn(num, typ, v, 0); err != nil {
				return err
			}
			b = b[n:]
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("nodeapi: malformed varint field %d", num)
			}
			if err := fn(num, typ, nil, v); err != nil {
				return err
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("nodeapi: malformed field %d", num)
			}
			b = b[n:]
		}
	}
	return nil
}
