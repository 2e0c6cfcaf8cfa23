// Package heightcache saves the measured line heights of a document so a reopened index can
// skip re-measuring lines whose layout is already known.
package heightcache

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
)

// File extensions for supported codecs.
const (
	jsonExtension = ".json"
	lz4Extension  = ".lz4"
)

const defaultIndent = "  "

// Block framing for LZ4Codec.
const (
	blockRaw byte = iota
	blockLZ4
)

// maxBlockSize bounds the decoded size a header may claim.
const maxBlockSize = 1 << 30

// ErrCorrupt is returned when an encoded snapshot cannot be decoded.
var ErrCorrupt = errors.New("corrupt height snapshot")

// Codec defines how a snapshot is serialized.
type Codec interface {
	Encode(w io.Writer, snap *Snapshot) error
	Decode(r io.Reader, snap *Snapshot) error
	// Extension returns the file extension for this codec, e.g. ".json".
	Extension() string
}

// CodecFor picks a codec from the extension of path. Anything but ".json" uses LZ4.
func CodecFor(path string) Codec {
	if filepath.Ext(path) == jsonExtension {
		return NewJSONCodec()
	}

	return NewLZ4Codec()
}

// JSONCodec stores snapshots as JSON with optional indentation.
type JSONCodec struct {
	// Indent is the indentation string. Empty means compact JSON.
	Indent string
}

// NewJSONCodec creates a JSON codec with 2-space indentation.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{Indent: defaultIndent}
}

// Encode implements Codec.
func (c *JSONCodec) Encode(w io.Writer, snap *Snapshot) error {
	encoder := json.NewEncoder(w)
	if c.Indent != "" {
		encoder.SetIndent("", c.Indent)
	}

	if err := encoder.Encode(snap); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Decode implements Codec.
func (c *JSONCodec) Decode(r io.Reader, snap *Snapshot) error {
	if err := json.NewDecoder(r).Decode(snap); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

// Extension implements Codec.
func (c *JSONCodec) Extension() string {
	return jsonExtension
}

// LZ4Codec gob-encodes a snapshot and compresses it as a single LZ4 block.
//
// The framing is one kind byte, the uvarint length of the gob payload, then the block.
// Payloads LZ4 cannot shrink are stored raw.
type LZ4Codec struct{}

// NewLZ4Codec creates an LZ4 codec.
func NewLZ4Codec() *LZ4Codec {
	return &LZ4Codec{}
}

// Encode implements Codec.
func (c *LZ4Codec) Encode(w io.Writer, snap *Snapshot) error {
	var payload bytes.Buffer

	if err := gob.NewEncoder(&payload).Encode(snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}

	kind, block := blockLZ4, make([]byte, lz4.CompressBlockBound(payload.Len()))

	written, err := lz4.CompressBlock(payload.Bytes(), block, nil)
	if err != nil {
		return fmt.Errorf("lz4 compress: %w", err)
	}

	if written == 0 || written >= payload.Len() {
		kind, block = blockRaw, payload.Bytes()
	} else {
		block = block[:written]
	}

	header := make([]byte, 1, 1+binary.MaxVarintLen64)
	header[0] = kind
	header = binary.AppendUvarint(header, uint64(payload.Len()))

	if _, err = w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	if _, err = w.Write(block); err != nil {
		return fmt.Errorf("write block: %w", err)
	}

	return nil
}

// Decode implements Codec.
func (c *LZ4Codec) Decode(r io.Reader, snap *Snapshot) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	if len(data) == 0 {
		return fmt.Errorf("%w: empty input", ErrCorrupt)
	}

	kind := data[0]

	size, n := binary.Uvarint(data[1:])
	if n <= 0 || size > maxBlockSize {
		return fmt.Errorf("%w: bad length header", ErrCorrupt)
	}

	block := data[1+n:]

	var payload []byte

	switch kind {
	case blockRaw:
		payload = block
	case blockLZ4:
		payload = make([]byte, size)

		read, uerr := lz4.UncompressBlock(block, payload)
		if uerr != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, uerr)
		}

		payload = payload[:read]
	default:
		return fmt.Errorf("%w: unknown block kind %d", ErrCorrupt, kind)
	}

	if uint64(len(payload)) != size {
		return fmt.Errorf("%w: payload is %d bytes, header says %d", ErrCorrupt, len(payload), size)
	}

	if err = gob.NewDecoder(bytes.NewReader(payload)).Decode(snap); err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}

	return nil
}

// Extension implements Codec.
func (c *LZ4Codec) Extension() string {
	return lz4Extension
}
