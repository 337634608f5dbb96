package device

import "fmt"

// Memory is an in-memory Interface implementation used by tests that need
// to drive failure injection the way a flaky disk would, without needing a
// real file on disk. It is exported so that tests in the simplefs package
// itself can exercise partial-transfer failure semantics (spec §7) without
// reaching into this package's internals.
type Memory struct {
	sectors    [][]byte
	readOnly   bool
	closed     bool
	FailAt     map[uint32]error // sector -> error to return instead of succeeding
	FailWrites bool             // when true, every WriteSector fails regardless of FailAt
}

var _ Interface = (*Memory)(nil)

// NewMemory returns a Memory device of the given sector count, zero-filled.
func NewMemory(sectors uint32) *Memory {
	s := make([][]byte, sectors)
	for i := range s {
		s[i] = make([]byte, SectorSize)
	}
	return &Memory{sectors: s, FailAt: make(map[uint32]error)}
}

func (m *Memory) SectorCount() uint32 {
	return uint32(len(m.sectors))
}

func (m *Memory) ReadSector(sector uint32, buf []byte) error {
	if m.closed {
		return ErrClosed
	}
	if len(buf) != SectorSize {
		return fmt.Errorf("device: read buffer is %d bytes, want %d", len(buf), SectorSize)
	}
	if sector >= uint32(len(m.sectors)) {
		return fmt.Errorf("%w: sector %d of %d", ErrOutOfRange, sector, len(m.sectors))
	}
	if err, ok := m.FailAt[sector]; ok {
		return err
	}
	copy(buf, m.sectors[sector])
	return nil
}

func (m *Memory) WriteSector(sector uint32, buf []byte) error {
	if m.closed {
		return ErrClosed
	}
	if m.readOnly {
		return ErrReadOnly
	}
	if len(buf) != SectorSize {
		return fmt.Errorf("device: write buffer is %d bytes, want %d", len(buf), SectorSize)
	}
	if sector >= uint32(len(m.sectors)) {
		return fmt.Errorf("%w: sector %d of %d", ErrOutOfRange, sector, len(m.sectors))
	}
	if m.FailWrites {
		return fmt.Errorf("device: injected write failure at sector %d", sector)
	}
	if err, ok := m.FailAt[sector]; ok {
		return err
	}
	copy(m.sectors[sector], buf)
	return nil
}

func (m *Memory) Sync() error {
	if m.closed {
		return ErrClosed
	}
	return nil
}

func (m *Memory) Close() error {
	m.closed = true
	return nil
}
