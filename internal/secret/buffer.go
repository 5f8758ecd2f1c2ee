// Package secret holds credentials (passwords, private-key paths) in memory
// that lives outside the Go heap and is zeroed when released.
package secret

import (
	"errors"
	"sync"

	"golang.org/x/sys/unix"
)

var ErrEmpty = errors.New("secret: empty value")

// Buffer is an mmap-backed byte region. Locking into RAM and excluding it
// from core dumps is best effort; zeroing on Close is not.
type Buffer struct {
	mu     sync.Mutex
	data   []byte
	closed bool
}

// FromBytes copies source into a new Buffer and zeroes source.
func FromBytes(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, ErrEmpty
	}
	data, err := unix.Mmap(-1, 0, len(source), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, err
	}
	// RLIMIT_MEMLOCK is often tiny in containers.
	_ = unix.Mlock(data)
	_ = unix.Madvise(data, unix.MADV_DONTDUMP)

	copy(data, source)
	Zero(source)
	return &Buffer{data: data}, nil
}

func FromString(value string) (*Buffer, error) {
	return FromBytes([]byte(value))
}

// String returns a heap copy of the secret. Use it only at API boundaries
// that insist on strings. Returns "" after Close.
func (b *Buffer) String() string {
	if b == nil {
		return ""
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ""
	}
	return string(b.data)
}

func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0
	}
	return len(b.data)
}

// Close zeroes and unmaps the region. It is idempotent and safe on nil.
func (b *Buffer) Close() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	Zero(b.data)
	_ = unix.Munlock(b.data)
	err := unix.Munmap(b.data)
	b.data = nil
	return err
}

func Zero(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
