package leafdb

import (
	"bytes"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/pierrec/lz4"
	"github.com/pkg/errors"
)

type CompressAlgorithm uint16

const (
	CompSnappy CompressAlgorithm = iota // default
	CompNone
	CompLz4
)

func (a CompressAlgorithm) String() string {
	switch a {
	case CompSnappy:
		return "snappy"
	case CompNone:
		return "none"
	case CompLz4:
		return "lz4"
	}
	return "unknown"
}

func ParseCompressAlgorithm(name string) (CompressAlgorithm, error) {
	switch strings.ToLower(name) {
	case "", "snappy":
		return CompSnappy, nil
	case "none":
		return CompNone, nil
	case "lz4":
		return CompLz4, nil
	}
	return 0, errors.Errorf("unknown compression %q", name)
}

type Compressor func([]byte) ([]byte, error)

// DeCompressor fails with ErrDecompressLimit rather than produce more than
// limit bytes.
type DeCompressor func(in []byte, limit int) ([]byte, error)

var (
	SnappyCompress Compressor = func(in []byte) ([]byte, error) {
		return snappy.Encode(nil, in), nil
	}
	SnappyDeCompress DeCompressor = func(in []byte, limit int) ([]byte, error) {
		n, err := snappy.DecodedLen(in)
		if err != nil {
			return nil, err
		}
		if n > limit {
			return nil, errors.Wrapf(ErrDecompressLimit, "snappy block decodes to %d bytes, limit %d", n, limit)
		}
		return snappy.Decode(nil, in)
	}
)

var (
	Lz4Compress Compressor = func(in []byte) ([]byte, error) {
		buf := &bytes.Buffer{}
		writer := lz4.NewWriter(buf)
		writer.NoChecksum = true
		if _, err := writer.Write(in); err != nil {
			return nil, errors.Wrap(err, "lz4 write")
		}
		if err := writer.Close(); err != nil {
			return nil, errors.Wrap(err, "lz4 close")
		}
		return buf.Bytes(), nil
	}

	Lz4DeCompress DeCompressor = func(in []byte, limit int) ([]byte, error) {
		buf := &bytes.Buffer{}
		reader := lz4.NewReader(bytes.NewReader(in))
		if _, err := buf.ReadFrom(io.LimitReader(reader, int64(limit)+1)); err != nil {
			return nil, err
		}
		if buf.Len() > limit {
			return nil, errors.Wrapf(ErrDecompressLimit, "lz4 frame exceeds %d bytes", limit)
		}
		return buf.Bytes(), nil
	}
)

var (
	noneCompress Compressor = func(in []byte) ([]byte, error) {
		return in, nil
	}
	noneDeCompress DeCompressor = func(in []byte, limit int) ([]byte, error) {
		if len(in) > limit {
			return nil, errors.Wrapf(ErrDecompressLimit, "%d bytes, limit %d", len(in), limit)
		}
		return in, nil
	}
)

func codecs(alg CompressAlgorithm) (Compressor, DeCompressor, error) {
	switch alg {
	case CompSnappy:
		return SnappyCompress, SnappyDeCompress, nil
	case CompNone:
		return noneCompress, noneDeCompress, nil
	case CompLz4:
		return Lz4Compress, Lz4DeCompress, nil
	}
	return nil, nil, errors.Errorf("unknown compression algorithm %d", alg)
}
