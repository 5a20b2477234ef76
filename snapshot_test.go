package leafdb

import (
	"bytes"
	"hash/crc32"
	"os"
	"testing"

	"github.com/pkg/errors"
	assertion "github.com/stretchr/testify/assert"
)

func TestSnapshotRestore(t *testing.T) {
	for _, alg := range []CompressAlgorithm{CompSnappy, CompNone, CompLz4} {
		t.Run(alg.String(), func(t *testing.T) {
			assert := assertion.New(t)
			table := seedTable(t, 3, 1, 2)

			buf := &bytes.Buffer{}
			assert.NoError(table.Snapshot(buf, alg))

			restored, err := Restore(bytes.NewReader(buf.Bytes()), tempDB(t), nil)
			assert.NoError(err)
			defer restored.Close()
			rows, err := restored.SelectAll()
			assert.NoError(err)
			assert.Equal([]uint32{1, 2, 3}, ids(rows))
		})
	}
}

func TestSnapshotHeader(t *testing.T) {
	assert := assertion.New(t)
	table := seedTable(t, 1)
	buf := &bytes.Buffer{}
	assert.NoError(table.Snapshot(buf, CompNone))
	assert.Equal(snapshotHeaderSize+PageSize, buf.Len())

	head := &SnapshotHeader{}
	head.unmarshal(buf.Bytes())
	assert.Equal(Magic, head.Magic)
	assert.Equal("LFDB", string(buf.Bytes()[:4]))
	assert.Equal(Version, head.Version)
	assert.Equal(CompNone, head.Compression)
	assert.Equal(uint32(1), head.PageCount)
	assert.Equal(uint32(PageSize), head.PayloadLen)
}

func TestRestoreRejectsCorruption(t *testing.T) {
	assert := assertion.New(t)
	table := seedTable(t, 1, 2)
	buf := &bytes.Buffer{}
	assert.NoError(table.Snapshot(buf, CompNone))
	data := buf.Bytes()

	bad := append([]byte(nil), data...)
	bad[snapshotHeaderSize+LeafNodeHeaderSize] ^= 0xFF
	_, err := Restore(bytes.NewReader(bad), tempDB(t), nil)
	assert.True(errors.Is(err, ErrChecksumMismatch))

	bad = append([]byte(nil), data...)
	bad[0] = 'X'
	_, err = Restore(bytes.NewReader(bad), tempDB(t), nil)
	assert.True(errors.Is(err, ErrBadSnapshot))

	_, err = Restore(bytes.NewReader(data[:10]), tempDB(t), nil)
	assert.True(errors.Is(err, ErrBadSnapshot))

	_, err = Restore(bytes.NewReader(data[:len(data)-1]), tempDB(t), nil)
	assert.True(errors.Is(err, ErrBadSnapshot))
}

func TestDeCompressLimit(t *testing.T) {
	in := bytes.Repeat([]byte{7}, 2*PageSize)
	for _, alg := range []CompressAlgorithm{CompSnappy, CompNone, CompLz4} {
		t.Run(alg.String(), func(t *testing.T) {
			assert := assertion.New(t)
			compress, decompress, err := codecs(alg)
			assert.NoError(err)
			packed, err := compress(in)
			assert.NoError(err)

			out, err := decompress(packed, len(in))
			assert.NoError(err)
			assert.Equal(in, out)

			_, err = decompress(packed, PageSize)
			assert.True(errors.Is(err, ErrDecompressLimit))
		})
	}
}

func TestRestoreRejectsOversizedPayload(t *testing.T) {
	for _, alg := range []CompressAlgorithm{CompSnappy, CompNone, CompLz4} {
		t.Run(alg.String(), func(t *testing.T) {
			assert := assertion.New(t)
			payload := make([]byte, 2*PageSize)
			compress, _, err := codecs(alg)
			assert.NoError(err)
			packed, err := compress(payload)
			assert.NoError(err)

			head := &SnapshotHeader{
				Magic:       Magic,
				Version:     Version,
				Compression: alg,
				PageSize:    PageSize,
				PageCount:   1,
				Checksum:    crc32.ChecksumIEEE(payload),
				PayloadLen:  uint32(len(packed)),
			}
			data := append(head.marshal(), packed...)

			path := tempDB(t)
			table, err := Restore(bytes.NewReader(data), path, nil)
			assert.Nil(table)
			assert.True(errors.Is(err, ErrBadSnapshot))
			_, err = os.Stat(path)
			assert.True(os.IsNotExist(err))
		})
	}
}

func TestRestoreRefusesExistingFile(t *testing.T) {
	assert := assertion.New(t)
	table := seedTable(t, 1)
	buf := &bytes.Buffer{}
	assert.NoError(table.Snapshot(buf, CompSnappy))

	path := tempDB(t)
	other, err := Open(path, nil)
	assert.NoError(err)
	assert.NoError(other.Close())

	_, err = Restore(bytes.NewReader(buf.Bytes()), path, nil)
	assert.True(errors.Is(err, ErrFileExists))
	info, err := os.Stat(path)
	assert.NoError(err)
	assert.Equal(int64(PageSize), info.Size())
}

func TestParseCompressAlgorithm(t *testing.T) {
	assert := assertion.New(t)
	for _, name := range []string{"snappy", "none", "lz4"} {
		alg, err := ParseCompressAlgorithm(name)
		assert.NoError(err)
		assert.Equal(name, alg.String())
	}
	_, err := ParseCompressAlgorithm("zstd")
	assert.Error(err)
}
