package device

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// fileDevice is a device.Interface backed by a regular host file (or, on
// platforms where probeSectorSize is wired up, an actual block device
// opened by path). It is the only concrete Interface this module ships;
// the core never depends on it directly, only on device.Interface.
type fileDevice struct {
	f        *os.File
	sectors  uint32
	readOnly bool
	closed   bool
	log      logrus.FieldLogger
}

var _ Interface = (*fileDevice)(nil)

// Open opens an existing backing file (or block device) by path and
// derives the sector count from its size. The file must already exist;
// creating it is the pre-create mechanism's job (spec §1), not this
// package's. The file's size must be an exact multiple of SectorSize.
func Open(name string) (Interface, error) {
	return open(name, false)
}

// OpenReadOnly is like Open but never acquires a write lock on the file
// and rejects WriteSector/Sync.
func OpenReadOnly(name string) (Interface, error) {
	return open(name, true)
}

func open(name string, readOnly bool) (Interface, error) {
	if name == "" {
		return nil, fmt.Errorf("device: must pass a backing file name")
	}
	if _, err := os.Stat(name); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, name)
	}

	mode := os.O_RDONLY
	if !readOnly {
		mode = os.O_RDWR
	}
	f, err := os.OpenFile(name, mode, 0o600)
	if err != nil {
		return nil, fmt.Errorf("device: could not open %s: %w", name, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("device: could not stat %s: %w", name, err)
	}

	size := info.Size()
	if info.Mode()&os.ModeDevice != 0 {
		if blockSize, err := probeSectorSize(f); err == nil && blockSize > 0 {
			if SectorSize%blockSize != 0 {
				f.Close()
				return nil, fmt.Errorf("device: %s has physical sector size %d, which does not divide %d", name, blockSize, SectorSize)
			}
		}
		// Stat reports no size for a block device; its end offset does.
		if end, err := f.Seek(0, io.SeekEnd); err == nil {
			size = end
		}
	}

	if size <= 0 || size%SectorSize != 0 {
		f.Close()
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrBadSize, name, size)
	}

	return &fileDevice{
		f:        f,
		sectors:  uint32(size / SectorSize),
		readOnly: readOnly,
		log:      logrus.WithField("device", name),
	}, nil
}

// Create makes a new, zero-length-checked backing file of exactly
// sectors*SectorSize bytes and returns it opened for read-write. Tests and
// examples use this in place of the external pre-create mechanism; format()
// itself never calls it; it merely consumes whatever Open hands it.
func Create(name string, sectors uint32) (Interface, error) {
	if name == "" {
		return nil, fmt.Errorf("device: must pass a backing file name")
	}
	if sectors == 0 {
		return nil, fmt.Errorf("device: must request at least one sector")
	}
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("device: could not create %s: %w", name, err)
	}
	size := int64(sectors) * SectorSize
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("device: could not size %s to %d bytes: %w", name, size, err)
	}
	return &fileDevice{
		f:       f,
		sectors: sectors,
		log:     logrus.WithField("device", name),
	}, nil
}

func (d *fileDevice) SectorCount() uint32 {
	return d.sectors
}

func (d *fileDevice) ReadSector(sector uint32, buf []byte) error {
	if d.closed {
		return ErrClosed
	}
	if len(buf) != SectorSize {
		return fmt.Errorf("device: read buffer is %d bytes, want %d", len(buf), SectorSize)
	}
	if sector >= d.sectors {
		return fmt.Errorf("%w: sector %d of %d", ErrOutOfRange, sector, d.sectors)
	}
	n, err := d.f.ReadAt(buf, int64(sector)*SectorSize)
	if err != nil && err != io.EOF {
		d.log.WithError(err).WithField("sector", sector).Warn("sector read failed")
		return fmt.Errorf("device: reading sector %d: %w", sector, err)
	}
	if n != SectorSize {
		return fmt.Errorf("%w: read %d of %d bytes at sector %d", ErrShortTransfer, n, SectorSize, sector)
	}
	return nil
}

func (d *fileDevice) WriteSector(sector uint32, buf []byte) error {
	if d.closed {
		return ErrClosed
	}
	if d.readOnly {
		return ErrReadOnly
	}
	if len(buf) != SectorSize {
		return fmt.Errorf("device: write buffer is %d bytes, want %d", len(buf), SectorSize)
	}
	if sector >= d.sectors {
		return fmt.Errorf("%w: sector %d of %d", ErrOutOfRange, sector, d.sectors)
	}
	n, err := d.f.WriteAt(buf, int64(sector)*SectorSize)
	if err != nil {
		d.log.WithError(err).WithField("sector", sector).Warn("sector write failed")
		return fmt.Errorf("device: writing sector %d: %w", sector, err)
	}
	if n != SectorSize {
		return fmt.Errorf("%w: wrote %d of %d bytes at sector %d", ErrShortTransfer, n, SectorSize, sector)
	}
	return nil
}

func (d *fileDevice) Sync() error {
	if d.closed {
		return ErrClosed
	}
	if d.readOnly {
		return ErrReadOnly
	}
	if err := d.f.Sync(); err != nil {
		return fmt.Errorf("device: sync: %w", err)
	}
	return nil
}

func (d *fileDevice) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.f.Close()
}
