// Package splitter turns a byte source into a sequence of sealed,
// fixed-size block payloads.
package splitter

import (
	"fmt"
	"io"

	"github.com/akave-ai/akavesdk/internal/crypto"
	"github.com/akave-ai/akavesdk/internal/sdkerr"
)

// Splitter is a stateful, encrypt-on-read block iterator: each Next reads
// up to blockSize bytes from the source, seals them with AES-GCM under
// derive_key(rootKey, "block_"+counter), and advances the counter.
type Splitter struct {
	src       io.Reader
	blockSize int
	rootKey   [32]byte
	counter   uint64
	done      bool
}

// New builds a Splitter over src. rootKey must be exactly 32 bytes.
func New(src io.Reader, blockSize int, rootKey [32]byte) (*Splitter, error) {
	if blockSize <= 0 {
		return nil, sdkerr.New(sdkerr.Validation, "splitter.New", "blockSize must be positive")
	}
	return &Splitter{src: src, blockSize: blockSize, rootKey: rootKey}, nil
}

// Next reads and seals the next block. It returns io.EOF once the source
// is exhausted; a short final read is sealed and returned along with a nil
// error, with io.EOF surfacing on the following call.
func (s *Splitter) Next() ([]byte, error) {
	if s.done {
		return nil, io.EOF
	}

	buf := make([]byte, s.blockSize)
	n, err := io.ReadFull(s.src, buf)
	switch {
	case err == nil:
		// full block read, more may follow
	case err == io.ErrUnexpectedEOF:
		s.done = true
		buf = buf[:n]
	case err == io.EOF:
		s.done = true
		return nil, io.EOF
	default:
		return nil, sdkerr.Wrap(sdkerr.Transport, "splitter.Next", err)
	}

	info := blockInfo(s.counter)
	sealed, err := crypto.SealAESGCM(s.rootKey, buf, info)
	if err != nil {
		return nil, sdkerr.Wrap(sdkerr.Crypto, "splitter.Next", err)
	}
	s.counter++
	return sealed, nil
}

// Reset seeks the source back to its start and zeros the block counter. It
// requires src to implement io.Seeker.
func (s *Splitter) Reset() error {
	seeker, ok := s.src.(io.Seeker)
	if !ok {
		return sdkerr.New(sdkerr.Validation, "splitter.Reset", "source is not seekable")
	}
	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		return sdkerr.Wrap(sdkerr.Transport, "splitter.Reset", err)
	}
	s.counter = 0
	s.done = false
	return nil
}

func blockInfo(counter uint64) []byte {
	return []byte(fmt.Sprintf("block_%d", counter))
}
