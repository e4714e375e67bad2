// internal/storage/compression.go
package storage

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// CompressionOptions configures how stored values are compressed
type CompressionOptions struct {
	// Minimum size in bytes before compressing; zero disables compression
	MinSize int `mapstructure:"min_size"`
	// Compression level (1=fastest, 4=best)
	Level int `mapstructure:"level"`
}

// DefaultCompressionOptions provides sensible defaults
func DefaultCompressionOptions() CompressionOptions {
	return CompressionOptions{
		MinSize: 4 * 1024,
		Level:   2,
	}
}

// codec handles compression of stored records
type codec struct {
	opts CompressionOptions

	encoders sync.Pool
	decoders sync.Pool
}

func newCodec(opts CompressionOptions) (*codec, error) {
	if opts.Level == 0 {
		opts.Level = DefaultCompressionOptions().Level
	}

	// Create encoder/decoder for validation
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(opts.Level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("creating test encoder: %w", err)
	}
	enc.Close()

	return &codec{
		opts: opts,
		encoders: sync.Pool{
			New: func() any {
				enc, _ := zstd.NewWriter(nil,
					zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(opts.Level)),
					zstd.WithEncoderConcurrency(1),
				)
				return enc
			},
		},
		decoders: sync.Pool{
			New: func() any {
				dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
				return dec
			},
		},
	}, nil
}

func (c *codec) encode(data []byte) []byte {
	if c.opts.MinSize <= 0 || len(data) < c.opts.MinSize {
		return data
	}

	enc := c.encoders.Get().(*zstd.Encoder)
	defer c.encoders.Put(enc)

	return enc.EncodeAll(data, make([]byte, 0, len(data)/2))
}

func (c *codec) decode(data []byte) ([]byte, error) {
	// Plain JSON never starts with the zstd frame magic
	if len(data) < 4 || !bytes.Equal(data[:4], zstdMagic) {
		return data, nil
	}

	dec := c.decoders.Get().(*zstd.Decoder)
	defer c.decoders.Put(dec)

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing record: %w", err)
	}
	return out, nil
}
