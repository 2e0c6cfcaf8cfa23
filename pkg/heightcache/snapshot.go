package heightcache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/Sumatoshi-tech/lineindex/pkg/lineindex"
	"github.com/Sumatoshi-tech/lineindex/pkg/linetree"
)

// FormatVersion is written into every snapshot and checked on restore.
const FormatVersion = 1

// Errors returned by Restore.
var (
	ErrVersion  = errors.New("unsupported height snapshot version")
	ErrMismatch = errors.New("height snapshot does not match the document")
)

// Snapshot holds one height per line, in row order, with a fingerprint of the line layout
// it was taken from.
type Snapshot struct {
	Version int       `json:"version"`
	Lines   int       `json:"lines"`
	Length  int       `json:"length"`
	Digest  uint64    `json:"digest"`
	Heights []float64 `json:"heights"`
}

// Fingerprint hashes the content length and delimiter of every line. Two indexes with the
// same fingerprint split their text into the same lines.
func Fingerprint(ix *lineindex.Index) uint64 {
	digest := xxhash.New()
	buf := make([]byte, 0, binary.MaxVarintLen64+1)

	for line := range ix.Lines() {
		buf = binary.AppendUvarint(buf[:0], uint64(line.Content)) //nolint:gosec // lengths are never negative
		buf = append(buf, byte(line.Delimiter))

		_, _ = digest.Write(buf)
	}

	return digest.Sum64()
}

// Capture records the current heights of ix.
func Capture(ix *lineindex.Index) *Snapshot {
	snap := &Snapshot{
		Version: FormatVersion,
		Lines:   ix.LineCount(),
		Length:  ix.DocumentLength(),
		Digest:  Fingerprint(ix),
		Heights: make([]float64, 0, ix.LineCount()),
	}

	for line := range ix.Lines() {
		snap.Heights = append(snap.Heights, line.Height)
	}

	return snap
}

// Restore applies the snapshot heights to ix and returns how many lines changed height.
// Nothing is applied unless the snapshot was taken from the same line layout.
func (s *Snapshot) Restore(ix *lineindex.Index) (int, error) {
	if s.Version != FormatVersion {
		return 0, fmt.Errorf("%w: %d", ErrVersion, s.Version)
	}

	switch {
	case s.Lines != ix.LineCount(), len(s.Heights) != s.Lines:
		return 0, fmt.Errorf("%w: %d lines, index has %d", ErrMismatch, s.Lines, ix.LineCount())
	case s.Length != ix.DocumentLength():
		return 0, fmt.Errorf("%w: length %d, index has %d", ErrMismatch, s.Length, ix.DocumentLength())
	case s.Digest != Fingerprint(ix):
		return 0, fmt.Errorf("%w: line layout differs", ErrMismatch)
	}

	handles := make([]linetree.Handle, 0, s.Lines)
	for line := range ix.Lines() {
		handles = append(handles, line.ID)
	}

	changed := 0

	for row, h := range handles {
		moved, err := ix.SetHeight(h, s.Heights[row])
		if err != nil {
			return changed, fmt.Errorf("row %d: %w", row, err)
		}

		if moved {
			changed++
		}
	}

	return changed, nil
}

// Save writes snap to path with codec.
func Save(path string, codec Codec, snap *Snapshot) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create height snapshot: %w", err)
	}

	if err = codec.Encode(file, snap); err != nil {
		return errors.Join(fmt.Errorf("encode height snapshot: %w", err), file.Close())
	}

	return file.Close()
}

// Load reads a snapshot from path with codec.
func Load(path string, codec Codec) (*Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open height snapshot: %w", err)
	}
	defer file.Close()

	var snap Snapshot

	if err = codec.Decode(file, &snap); err != nil {
		return nil, fmt.Errorf("decode height snapshot: %w", err)
	}

	return &snap, nil
}
