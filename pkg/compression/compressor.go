// Package compression provides the byte-level codecs used by cpandas file
// formats. Each algorithm is exposed through the Compressor interface with
// in-memory and streaming variants.
//
// # Algorithms
//
//   - Snappy: implemented in this package (see Encode/Decode), block format
//   - Gzip/Deflate: klauspost/compress
//   - Zstd/S2: klauspost/compress
//   - LZ4: pierrec/lz4
//
// # Basic Usage
//
//	comp, err := compression.NewCompressor(&compression.Config{
//	    Algorithm: compression.Snappy,
//	    Level:     compression.Default,
//	})
//	compressed, err := comp.Compress(data)
//	original, err := comp.Decompress(compressed)
//
// # File Suffixes
//
// FromPath maps a trailing file suffix (".gz", ".zst", ".lz4", ".s2",
// ".deflate", ".snappy") to its algorithm so format readers and writers
// can wrap their streams transparently.
package compression

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/ajitpratap0/cpandas/pkg/pool"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents snappy block compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 frame compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
	// Deflate represents raw deflate compression
	Deflate Algorithm = "deflate"
)

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

// Algorithms lists every supported algorithm in a stable order.
var Algorithms = []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2, Deflate}

var suffixes = map[string]Algorithm{
	".gz":      Gzip,
	".gzip":    Gzip,
	".snappy":  Snappy,
	".lz4":     LZ4,
	".zst":     Zstd,
	".zstd":    Zstd,
	".s2":      S2,
	".deflate": Deflate,
}

// ParseAlgorithm resolves an algorithm name. The empty string and
// "uncompressed" both mean None.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "", "none", "uncompressed":
		return None, nil
	case "gz":
		return Gzip, nil
	case "zst":
		return Zstd, nil
	default:
		for _, a := range Algorithms {
			if string(a) == n {
				return a, nil
			}
		}
	}
	return None, errors.Newf(errors.CodeInvalid, "unknown compression algorithm %q", name)
}

// FromPath returns the algorithm implied by the final suffix of path and the
// path with that suffix removed. Paths without a known suffix yield None and
// the path unchanged.
func FromPath(path string) (Algorithm, string) {
	ext := strings.ToLower(filepath.Ext(path))
	if a, ok := suffixes[ext]; ok {
		return a, path[:len(path)-len(ext)]
	}
	return None, path
}

// Extension returns the canonical file suffix for a, or "" for None.
func Extension(a Algorithm) string {
	switch a {
	case Gzip:
		return ".gz"
	case Zstd:
		return ".zst"
	case Snappy, LZ4, S2, Deflate:
		return "." + string(a)
	}
	return ""
}

// Compressor compresses whole buffers or streams with one algorithm and
// level. Implementations are safe for concurrent use.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)

	// CompressStream copies src to dst through the encoder and flushes the
	// trailing frame.
	CompressStream(dst io.Writer, src io.Reader) error
	DecompressStream(dst io.Writer, src io.Reader) error

	Algorithm() Algorithm
	Level() Level
}

// Config selects the algorithm and level of a Compressor.
type Config struct {
	Algorithm Algorithm `json:"algorithm" yaml:"algorithm"`
	Level     Level     `json:"level" yaml:"level"`
}

// blockCodec is implemented by algorithms with a one-shot buffer API that
// beats routing through their stream writer.
type blockCodec interface {
	encode(src []byte) []byte
	decode(src []byte) ([]byte, error)
}

type codec struct {
	alg   Algorithm
	level Level
	block blockCodec
}

// NewCompressor builds a Compressor for cfg. A nil cfg means Snappy at the
// default level.
func NewCompressor(cfg *Config) (Compressor, error) {
	if cfg == nil {
		cfg = &Config{Algorithm: Snappy, Level: Default}
	}
	c := &codec{alg: cfg.Algorithm, level: cfg.Level}
	switch cfg.Algorithm {
	case None, "":
		c.alg = None
		c.block = identity{}
	case Snappy:
		c.block = snappyBlock{}
	case S2:
		c.block = s2Block{}
	case Zstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstdLevel(cfg.Level)), zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalid, "zstd encoder")
		}
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalid, "zstd decoder")
		}
		c.block = &zstdBlock{enc: enc, dec: dec}
	case Gzip, LZ4, Deflate:
	default:
		return nil, errors.Newf(errors.CodeInvalid, "unsupported compression algorithm: %s", cfg.Algorithm)
	}
	return c, nil
}

func (c *codec) Algorithm() Algorithm { return c.alg }
func (c *codec) Level() Level         { return c.level }

func (c *codec) Compress(data []byte) ([]byte, error) {
	if c.block != nil {
		return c.block.encode(data), nil
	}
	var buf bytes.Buffer
	if err := c.CompressStream(&buf, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *codec) Decompress(data []byte) ([]byte, error) {
	if c.block != nil {
		out, err := c.block.decode(data)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeParse, "%s block", c.alg)
		}
		return out, nil
	}
	var buf bytes.Buffer
	if err := c.DecompressStream(&buf, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *codec) CompressStream(dst io.Writer, src io.Reader) error {
	w, err := NewWriter(c.alg, c.level, dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		_ = w.Close()
		return errors.Wrapf(err, errors.CodeIO, "%s stream", c.alg)
	}
	return w.Close()
}

func (c *codec) DecompressStream(dst io.Writer, src io.Reader) error {
	r, err := NewReader(c.alg, src)
	if err != nil {
		return err
	}
	defer r.Close()
	if _, err := io.Copy(dst, r); err != nil {
		return errors.Wrapf(err, errors.CodeParse, "%s stream", c.alg)
	}
	return nil
}

type identity struct{}

func (identity) encode(src []byte) []byte          { return bytes.Clone(src) }
func (identity) decode(src []byte) ([]byte, error) { return bytes.Clone(src), nil }

type snappyBlock struct{}

func (snappyBlock) encode(src []byte) []byte          { return Encode(nil, src) }
func (snappyBlock) decode(src []byte) ([]byte, error) { return Decode(nil, src) }

type s2Block struct{}

func (s2Block) encode(src []byte) []byte          { return s2.Encode(nil, src) }
func (s2Block) decode(src []byte) ([]byte, error) { return s2.Decode(nil, src) }

// zstdBlock holds one encoder and decoder; EncodeAll and DecodeAll may be
// called concurrently.
type zstdBlock struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func (z *zstdBlock) encode(src []byte) []byte          { return z.enc.EncodeAll(src, nil) }
func (z *zstdBlock) decode(src []byte) ([]byte, error) { return z.dec.DecodeAll(src, nil) }

// CompressorPool recycles Compressors built from one Config. Parquet page
// codecs share a pool per algorithm.
type CompressorPool struct {
	pool *pool.Pool[Compressor]
	err  error
}

// NewCompressorPool validates cfg once; a bad cfg surfaces from every Get.
func NewCompressorPool(cfg *Config) *CompressorPool {
	if _, err := NewCompressor(cfg); err != nil {
		return &CompressorPool{err: err}
	}
	return &CompressorPool{pool: pool.New(func() Compressor {
		c, _ := NewCompressor(cfg)
		return c
	}, nil)}
}

func (cp *CompressorPool) Get() (Compressor, error) {
	if cp.err != nil {
		return nil, cp.err
	}
	return cp.pool.Get(), nil
}

func (cp *CompressorPool) Put(c Compressor) {
	if c != nil && cp.pool != nil {
		cp.pool.Put(c)
	}
}

func (cp *CompressorPool) Compress(data []byte) ([]byte, error) {
	c, err := cp.Get()
	if err != nil {
		return nil, err
	}
	defer cp.Put(c)
	return c.Compress(data)
}

func (cp *CompressorPool) Decompress(data []byte) ([]byte, error) {
	c, err := cp.Get()
	if err != nil {
		return nil, err
	}
	defer cp.Put(c)
	return c.Decompress(data)
}

// NewReader wraps src so reads yield decompressed bytes. Closing the result
// releases decoder state but leaves src open.
func NewReader(alg Algorithm, src io.Reader) (io.ReadCloser, error) {
	switch alg {
	case None, "":
		return io.NopCloser(src), nil
	case Gzip:
		r, err := gzip.NewReader(src)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeParse, "gzip header")
		}
		return r, nil
	case Deflate:
		return flate.NewReader(src), nil
	case Zstd:
		dec, err := zstd.NewReader(src)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeParse, "zstd header")
		}
		return dec.IOReadCloser(), nil
	case S2:
		return io.NopCloser(s2.NewReader(src)), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(src)), nil
	case Snappy:
		data, err := io.ReadAll(src)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeIO, "read snappy stream")
		}
		out, err := Decode(nil, data)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(out)), nil
	}
	return nil, errors.Newf(errors.CodeInvalid, "unsupported compression algorithm: %s", alg)
}

// NewWriter wraps dst so written bytes are compressed at level. Close
// flushes the trailing frame but leaves dst open.
func NewWriter(alg Algorithm, level Level, dst io.Writer) (io.WriteCloser, error) {
	switch alg {
	case None, "":
		return nopWriteCloser{dst}, nil
	case Gzip:
		return gzip.NewWriterLevel(dst, scale(level, gzip.BestSpeed, gzip.DefaultCompression, 7, gzip.BestCompression))
	case Deflate:
		return flate.NewWriter(dst, scale(level, flate.BestSpeed, flate.DefaultCompression, 7, flate.BestCompression))
	case Zstd:
		return zstd.NewWriter(dst, zstd.WithEncoderLevel(zstdLevel(level)))
	case S2:
		return s2.NewWriter(dst), nil
	case LZ4:
		w := lz4.NewWriter(dst)
		lvl := scale(level, lz4.Fast, lz4.Level5, lz4.Level7, lz4.Level9)
		if err := w.Apply(lz4.CompressionLevelOption(lvl)); err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalid, "lz4 level")
		}
		return w, nil
	case Snappy:
		return &snappyWriter{dst: dst}, nil
	}
	return nil, errors.Newf(errors.CodeInvalid, "unsupported compression algorithm: %s", alg)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// snappyWriter buffers the whole stream since the block format carries the
// total length up front.
type snappyWriter struct {
	dst io.Writer
	buf bytes.Buffer
}

func (w *snappyWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *snappyWriter) Close() error {
	_, err := w.dst.Write(Encode(nil, w.buf.Bytes()))
	return err
}

// scale maps a 1..9 level onto a backend's four tiers. Zero means Default.
func scale[T any](level Level, fast, mid, better, best T) T {
	switch {
	case level == 0:
		return mid
	case level <= Fastest:
		return fast
	case level >= Best:
		return best
	case level >= Better:
		return better
	}
	return mid
}

func zstdLevel(level Level) zstd.EncoderLevel {
	return scale(level, zstd.SpeedFastest, zstd.SpeedDefault, zstd.SpeedBetterCompression, zstd.SpeedBestCompression)
}
