package leafdb

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// Magic = "LFDB" in littleEndian
	Magic   uint32 = 0x4244464c
	Version uint16 = 1

	snapshotHeaderSize = 32
)

// SnapshotHeader precedes the compressed page payload of a snapshot. It is
// encoded little-endian in 32 bytes, the last 8 reserved.
type SnapshotHeader struct {
	Magic       uint32            // 4
	Version     uint16            // 2
	Compression CompressAlgorithm // 2
	PageSize    uint32            // 4
	PageCount   uint32            // 4
	Checksum    uint32            // 4, crc32 of the uncompressed payload
	PayloadLen  uint32            // 4, compressed length
}

func (h *SnapshotHeader) marshal() []byte {
	buf := make([]byte, snapshotHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:], h.Version)
	binary.LittleEndian.PutUint16(buf[6:], uint16(h.Compression))
	binary.LittleEndian.PutUint32(buf[8:], h.PageSize)
	binary.LittleEndian.PutUint32(buf[12:], h.PageCount)
	binary.LittleEndian.PutUint32(buf[16:], h.Checksum)
	binary.LittleEndian.PutUint32(buf[20:], h.PayloadLen)
	return buf
}

func (h *SnapshotHeader) unmarshal(buf []byte) {
	h.Magic = binary.LittleEndian.Uint32(buf[0:])
	h.Version = binary.LittleEndian.Uint16(buf[4:])
	h.Compression = CompressAlgorithm(binary.LittleEndian.Uint16(buf[6:]))
	h.PageSize = binary.LittleEndian.Uint32(buf[8:])
	h.PageCount = binary.LittleEndian.Uint32(buf[12:])
	h.Checksum = binary.LittleEndian.Uint32(buf[16:])
	h.PayloadLen = binary.LittleEndian.Uint32(buf[20:])
}

func (h *SnapshotHeader) validate() error {
	if h.Magic != Magic {
		return errors.Wrapf(ErrBadSnapshot, "magic %#x", h.Magic)
	}
	if h.Version != Version {
		return errors.Wrapf(ErrBadSnapshot, "version %d", h.Version)
	}
	if h.PageSize != PageSize {
		return errors.Wrapf(ErrBadSnapshot, "page size %d", h.PageSize)
	}
	if h.PageCount == 0 || h.PageCount > TableMaxPages {
		return errors.Wrapf(ErrBadSnapshot, "page count %d", h.PageCount)
	}
	if _, _, err := codecs(h.Compression); err != nil {
		return errors.Wrap(ErrBadSnapshot, err.Error())
	}
	return nil
}

// Snapshot writes every page of the table, as currently cached, to w.
func (t *Table) Snapshot(w io.Writer, alg CompressAlgorithm) error {
	compress, _, err := codecs(alg)
	if err != nil {
		return err
	}

	t.rwlock.Lock()
	defer t.rwlock.Unlock()
	if !t.opened {
		return ErrClosed
	}

	count := t.pager.numPages
	payload := make([]byte, 0, int(count)*PageSize)
	for i := uint32(0); i < count; i++ {
		page, err := t.pager.getPage(i)
		if err != nil {
			return errors.Wrapf(err, "snapshot page %d", i)
		}
		payload = append(payload, page...)
	}

	compressed, err := compress(payload)
	if err != nil {
		return errors.Wrap(err, "compress snapshot")
	}
	head := &SnapshotHeader{
		Magic:       Magic,
		Version:     Version,
		Compression: alg,
		PageSize:    PageSize,
		PageCount:   count,
		Checksum:    crc32.ChecksumIEEE(payload),
		PayloadLen:  uint32(len(compressed)),
	}
	if _, err := w.Write(head.marshal()); err != nil {
		return errors.Wrap(err, "write snapshot header")
	}
	if _, err := w.Write(compressed); err != nil {
		return errors.Wrap(err, "write snapshot payload")
	}

	log.WithFields(log.Fields{
		"pages":       count,
		"compression": alg,
		"bytes":       len(compressed),
	}).Debug("snapshot written")
	return nil
}

// Restore writes the pages of a snapshot to path and opens the table. The
// target file must be absent or empty.
func Restore(r io.Reader, path string, options *Options) (*Table, error) {
	if options != nil && options.ReadOnly {
		return nil, ErrReadOnly
	}

	buf := make([]byte, snapshotHeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrap(ErrBadSnapshot, "short header")
	}
	head := &SnapshotHeader{}
	head.unmarshal(buf)
	if err := head.validate(); err != nil {
		return nil, err
	}

	compressed, err := ioutil.ReadAll(io.LimitReader(r, int64(head.PayloadLen)))
	if err != nil {
		return nil, errors.Wrap(err, "read snapshot payload")
	}
	if len(compressed) != int(head.PayloadLen) {
		return nil, errors.Wrapf(ErrBadSnapshot, "payload is %d bytes, header says %d", len(compressed), head.PayloadLen)
	}
	_, decompress, _ := codecs(head.Compression)
	size := int(head.PageCount) * PageSize
	payload, err := decompress(compressed, size)
	if err != nil {
		return nil, errors.Wrap(ErrBadSnapshot, err.Error())
	}
	if len(payload) != size {
		return nil, errors.Wrapf(ErrBadSnapshot, "payload holds %d bytes for %d pages", len(payload), head.PageCount)
	}
	if sum := crc32.ChecksumIEEE(payload); sum != head.Checksum {
		return nil, errors.Wrapf(ErrChecksumMismatch, "got %#x, want %#x", sum, head.Checksum)
	}

	if err := writeRestoredFile(path, payload, options); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"path": path, "pages": head.PageCount}).Info("snapshot restored")
	return Open(path, options)
}

func writeRestoredFile(path string, payload []byte, options *Options) error {
	mode := DefaultOptions.Mode
	if options != nil && options.Mode != 0 {
		mode = options.Mode
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, mode)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := flock(f, false); err != nil {
		return err
	}
	defer funlock(f)

	info, err := f.Stat()
	if err != nil {
		return errors.Wrap(err, "stat restore target")
	}
	if info.Size() != 0 {
		return errors.Wrapf(ErrFileExists, "%s is %d bytes", path, info.Size())
	}
	if _, err := f.WriteAt(payload, 0); err != nil {
		return errors.Wrap(err, "write restored pages")
	}
	return f.Sync()
}
