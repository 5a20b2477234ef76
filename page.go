package leafdb

import (
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// PageSize is the unit of I/O and caching. It never changes for a db file.
	PageSize = 4096

	// TableMaxPages bounds the page cache; there is no eviction.
	TableMaxPages = 100
)

// Pager is a file-backed array of fixed-size pages loaded on demand into an
// in-memory cache. It is the only owner of the open file handle.
type Pager struct {
	path       string
	file       *os.File
	fileLength int64
	readOnly   bool
	noSync     bool

	// numPages counts pages on disk plus pages touched beyond the file end.
	numPages uint32
	pages    [TableMaxPages][]byte
	state    [TableMaxPages]pageState
}

func openPager(path string, options *Options) (*Pager, error) {
	p := &Pager{path: path, readOnly: options.ReadOnly, noSync: options.NoSync}

	flag := os.O_RDWR
	if options.ReadOnly {
		flag = os.O_RDONLY
	} else {
		flag |= os.O_CREATE
	}
	var err error
	if p.file, err = os.OpenFile(path, flag, options.Mode); err != nil {
		return nil, err
	}

	// Lock file so that other processes using in read-write mode cannot
	// use the database at the same time.
	if err := waitflock(p.file, options.ReadOnly, options.Timeout); err != nil {
		_ = p.file.Close()
		return nil, err
	}

	info, err := p.file.Stat()
	if err != nil {
		_ = p.close()
		return nil, errors.Wrap(err, "stat db file")
	}
	p.fileLength = info.Size()
	if p.fileLength%PageSize != 0 {
		_ = p.close()
		return nil, errors.Wrapf(ErrCorruptFile, "file length %d is not a whole number of pages", p.fileLength)
	}
	if p.fileLength/PageSize > TableMaxPages {
		_ = p.close()
		return nil, errors.Wrapf(ErrCorruptFile, "file holds %d pages, max %d", p.fileLength/PageSize, TableMaxPages)
	}
	p.numPages = uint32(p.fileLength / PageSize)

	log.WithFields(log.Fields{"path": path, "pages": p.numPages, "readonly": p.readOnly}).Debug("pager opened")
	return p, nil
}

// getPage returns the cached page, reading it from disk on first access.
// Writes through the returned slice are seen by later calls; call markDirty
// so they reach the file on flush.
func (p *Pager) getPage(pageNum uint32) ([]byte, error) {
	if pageNum >= TableMaxPages {
		return nil, errors.Wrapf(ErrPageOutOfBounds, "page %d, max %d", pageNum, TableMaxPages)
	}
	if p.file == nil {
		return nil, ErrClosed
	}

	if !hasFlag(p.state[pageNum], pageLoaded) {
		// Cache miss. Allocate memory and load from file.
		page := make([]byte, PageSize)
		onDisk := uint32(p.fileLength / PageSize)
		if pageNum < onDisk {
			n, err := p.file.ReadAt(page, int64(pageNum)*PageSize)
			if err != nil && err != io.EOF {
				return nil, errors.Wrapf(err, "read page %d", pageNum)
			}
			log.WithFields(log.Fields{"page": pageNum, "bytes": n}).Debug("page loaded")
		}
		p.pages[pageNum] = page
		p.state[pageNum] = setFlag(p.state[pageNum], pageLoaded)

		if pageNum >= p.numPages {
			p.numPages = pageNum + 1
		}
	}

	return p.pages[pageNum], nil
}

func (p *Pager) markDirty(pageNum uint32) {
	if pageNum < TableMaxPages && hasFlag(p.state[pageNum], pageLoaded) {
		p.state[pageNum] = setFlag(p.state[pageNum], pageDirty)
	}
}

func (p *Pager) isDirty(pageNum uint32) bool {
	return pageNum < TableMaxPages && hasFlag(p.state[pageNum], pageDirty)
}

// flush writes the whole page to its offset in the file.
func (p *Pager) flush(pageNum uint32) error {
	if pageNum >= TableMaxPages {
		return errors.Wrapf(ErrPageOutOfBounds, "page %d, max %d", pageNum, TableMaxPages)
	}
	if !hasFlag(p.state[pageNum], pageLoaded) {
		return errors.Wrapf(ErrPageNotLoaded, "page %d", pageNum)
	}
	if p.readOnly {
		return ErrReadOnly
	}

	offset := int64(pageNum) * PageSize
	if _, err := p.file.WriteAt(p.pages[pageNum], offset); err != nil {
		return errors.Wrapf(err, "write page %d", pageNum)
	}
	if end := offset + PageSize; end > p.fileLength {
		p.fileLength = end
	}
	p.state[pageNum] = clearFlag(p.state[pageNum], pageDirty)
	log.WithField("page", pageNum).Debug("page flushed")
	return nil
}

// flushAll writes every dirty page in page-number order and syncs the file.
func (p *Pager) flushAll() error {
	if p.readOnly {
		return nil
	}
	var flushed int
	for i := uint32(0); i < p.numPages; i++ {
		if !p.isDirty(i) {
			continue
		}
		if err := p.flush(i); err != nil {
			return err
		}
		flushed++
	}
	if flushed == 0 || p.noSync {
		return nil
	}
	if err := p.file.Sync(); err != nil {
		return errors.Wrap(err, "sync db file")
	}
	return nil
}

func (p *Pager) close() error {
	if p.file == nil {
		return nil
	}
	if err := funlock(p.file); err != nil {
		log.Warnf("leafdb: funlock error: %s", err)
	}
	if err := p.file.Close(); err != nil {
		return errors.Wrap(err, "db file closed")
	}
	p.file = nil
	for i := range p.pages {
		p.pages[i] = nil
		p.state[i] = 0
	}
	log.WithField("path", p.path).Debug("pager closed")
	return nil
}
