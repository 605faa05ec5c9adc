package som

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how the weight payload of a snapshot is compressed.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionLZ4  Compression = 1
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression maps "none", "lz4" or "zstd" to a Compression.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	}
	return 0, &ErrInvalidParameter{Name: "compression", Value: name}
}

// Snapshot layout:
//
//	magic "SOMW" | version u8 | compression u8 | uncompressed u32 | compressed u32 | block
//
// The block holds, once decompressed, inputDim, rows, cols as u32 and the
// initial learning rate and radius as f64, followed by every weight as f64
// in [row][col][component] order. All integers are little endian. A
// compressed size of zero means the block is stored raw.
const (
	snapshotMagic   = "SOMW"
	snapshotVersion = 1
	headerSize      = len(snapshotMagic) + 2 + 8
	payloadHeader   = 3*4 + 2*8

	// MaxSnapshotSize bounds the decompressed payload Decode accepts.
	MaxSnapshotSize = 1 << 30

	// An lz4 block expands at most about 255 times.
	lz4MaxRatio = 255
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxSnapshotSize))
	return dec
}

// Encode writes the hyperparameters and weights of s to w.
func Encode(w io.Writer, s *SOM, c Compression) error {
	size := payloadHeader + 8*s.rows*s.cols*s.inputDim
	if size > MaxSnapshotSize {
		return &ErrInvalidParameter{Name: "snapshot size", Value: size}
	}
	raw := make([]byte, size)
	binary.LittleEndian.PutUint32(raw[0:], uint32(s.inputDim))
	binary.LittleEndian.PutUint32(raw[4:], uint32(s.rows))
	binary.LittleEndian.PutUint32(raw[8:], uint32(s.cols))
	binary.LittleEndian.PutUint64(raw[12:], math.Float64bits(s.initialLR))
	binary.LittleEndian.PutUint64(raw[20:], math.Float64bits(s.initialRadius))
	off := payloadHeader
	for i := range s.weights {
		for j := range s.weights[i] {
			for _, x := range s.weights[i][j] {
				binary.LittleEndian.PutUint64(raw[off:], math.Float64bits(x))
				off += 8
			}
		}
	}

	block, err := compress(raw, c)
	if err != nil {
		return err
	}
	stored := uint32(len(block))
	if len(block) >= len(raw) {
		block, stored = raw, 0
	}

	header := make([]byte, headerSize)
	copy(header, snapshotMagic)
	header[4] = snapshotVersion
	header[5] = byte(c)
	binary.LittleEndian.PutUint32(header[6:], uint32(len(raw)))
	binary.LittleEndian.PutUint32(header[10:], stored)
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err = w.Write(block)
	return err
}

func compress(raw []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return raw, nil
	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, dst, nil)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// Incompressible.
			return raw, nil
		}
		return dst[:n], nil
	case CompressionZSTD:
		enc := getZstdEncoder()
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(raw, nil), nil
	}
	return nil, &ErrInvalidParameter{Name: "compression", Value: c}
}

// Decode reads a snapshot written by Encode. The returned map reports the
// initial learning rate and radius as its current ones.
func Decode(r io.Reader) (*SOM, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrInvalidSnapshot, err)
	}
	if string(header[:4]) != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrInvalidSnapshot, header[:4])
	}
	if header[4] != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, header[4])
	}
	c := Compression(header[5])
	rawSize := binary.LittleEndian.Uint32(header[6:])
	stored := binary.LittleEndian.Uint32(header[10:])

	if rawSize < payloadHeader || rawSize > MaxSnapshotSize {
		return nil, fmt.Errorf("%w: payload size %d", ErrInvalidSnapshot, rawSize)
	}
	size := stored
	if stored == 0 {
		size = rawSize
	} else if int(stored) > lz4.CompressBlockBound(MaxSnapshotSize) {
		return nil, fmt.Errorf("%w: block size %d", ErrInvalidSnapshot, stored)
	}
	block, err := io.ReadAll(io.LimitReader(r, int64(size)))
	if err != nil {
		return nil, fmt.Errorf("%w: block: %v", ErrInvalidSnapshot, err)
	}
	if len(block) != int(size) {
		return nil, fmt.Errorf("%w: block: %v", ErrInvalidSnapshot, io.ErrUnexpectedEOF)
	}

	raw := block
	if stored != 0 {
		if raw, err = decompress(block, c, int(rawSize)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
	}
	return decodePayload(raw)
}

func decompress(block []byte, c Compression, rawSize int) ([]byte, error) {
	switch c {
	case CompressionLZ4:
		if rawSize > lz4MaxRatio*(len(block)+1) {
			return nil, fmt.Errorf("block of %d bytes cannot expand to %d", len(block), rawSize)
		}
		raw := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(block, raw)
		if err != nil {
			return nil, err
		}
		if n != rawSize {
			return nil, fmt.Errorf("decompressed size mismatch: %d != %d", n, rawSize)
		}
		return raw, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		raw, err := dec.DecodeAll(block, nil)
		if err != nil {
			return nil, err
		}
		if len(raw) != rawSize {
			return nil, fmt.Errorf("decompressed size mismatch: %d != %d", len(raw), rawSize)
		}
		return raw, nil
	}
	return nil, fmt.Errorf("unknown compression %v", c)
}

func decodePayload(raw []byte) (*SOM, error) {
	if len(raw) < payloadHeader {
		return nil, fmt.Errorf("%w: payload too small", ErrInvalidSnapshot)
	}
	inputDim := int(binary.LittleEndian.Uint32(raw[0:]))
	rows := int(binary.LittleEndian.Uint32(raw[4:]))
	cols := int(binary.LittleEndian.Uint32(raw[8:]))
	lr := math.Float64frombits(binary.LittleEndian.Uint64(raw[12:]))
	radius := math.Float64frombits(binary.LittleEndian.Uint64(raw[20:]))
	if inputDim <= 0 || rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: shape %dx%dx%d", ErrInvalidSnapshot, rows, cols, inputDim)
	}
	if !payloadFits(len(raw), rows, cols, inputDim) {
		return nil, fmt.Errorf("%w: payload size %d for shape %dx%dx%d", ErrInvalidSnapshot, len(raw), rows, cols, inputDim)
	}

	s := newSOM(inputDim, rows, cols, lr, radius)
	off := payloadHeader
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			for k := 0; k < inputDim; k++ {
				s.weights[i][j][k] = math.Float64frombits(binary.LittleEndian.Uint64(raw[off:]))
				off += 8
			}
			if !finite(s.weights[i][j]) {
				return nil, fmt.Errorf("%w: cell (%d, %d)", ErrNonFinite, i, j)
			}
		}
	}
	return s, nil
}

// payloadFits reports whether a payload of n bytes holds exactly
// rows*cols*inputDim weights. Every factor is below 2^32 and the weight
// count is compared step by step, so the products cannot overflow.
func payloadFits(n, rows, cols, inputDim int) bool {
	body := n - payloadHeader
	if body < 0 || body%8 != 0 {
		return false
	}
	weights := uint64(body / 8)
	cells := uint64(rows) * uint64(cols)
	if cells > weights {
		return false
	}
	return cells*uint64(inputDim) == weights
}
