package parquet

import (
	"fmt"
	"strings"

	"github.com/ajitpratap0/cpandas/pkg/compression"
	"github.com/ajitpratap0/cpandas/pkg/errors"
)

// Codec is a page compression codec as recorded in column metadata.
type Codec int32

const (
	Uncompressed Codec = 0
	Snappy       Codec = 1
	Gzip         Codec = 2
	Zstd         Codec = 6
)

func (c Codec) String() string {
	switch c {
	case Uncompressed:
		return "UNCOMPRESSED"
	case Snappy:
		return "SNAPPY"
	case Gzip:
		return "GZIP"
	case Zstd:
		return "ZSTD"
	}
	return fmt.Sprintf("Codec(%d)", int32(c))
}

// ParseCodec resolves a codec name as accepted by CPANDAS_PARQUET_CODEC.
// The empty string selects Snappy.
func ParseCodec(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "snappy":
		return Snappy, nil
	case "none", "uncompressed":
		return Uncompressed, nil
	case "gzip":
		return Gzip, nil
	case "zstd":
		return Zstd, nil
	}
	return Uncompressed, errors.Newf(errors.CodeInvalid, "unsupported parquet codec %q", name).
		WithDetail("accepted", "snappy, none, uncompressed, gzip, zstd")
}

var (
	gzipPool = compression.NewCompressorPool(&compression.Config{Algorithm: compression.Gzip, Level: compression.Default})
	zstdPool = compression.NewCompressorPool(&compression.Config{Algorithm: compression.Zstd, Level: compression.Default})
)

func compressPage(codec Codec, page []byte) ([]byte, error) {
	switch codec {
	case Uncompressed:
		return page, nil
	case Snappy:
		return compression.Encode(nil, page), nil
	case Gzip:
		return gzipPool.Compress(page)
	case Zstd:
		return zstdPool.Compress(page)
	}
	return nil, errors.Newf(errors.CodeInvalid, "unsupported parquet codec %s", codec)
}

// decompressPage inflates a page body and checks it against the size the
// page header declares.
func decompressPage(codec Codec, body []byte, size int) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch codec {
	case Uncompressed:
		out = body
	case Snappy:
		out, err = compression.Decode(nil, body)
	case Gzip:
		out, err = gzipPool.Decompress(body)
	case Zstd:
		out, err = zstdPool.Decompress(body)
	default:
		return nil, errors.Newf(errors.CodeParse, "unsupported parquet codec %s", codec)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeParse, "decompress %s page", codec)
	}
	if len(out) != size {
		return nil, errors.Newf(errors.CodeParse, "%s page inflated to %d bytes, header declares %d", codec, len(out), size)
	}
	return out, nil
}
