// Package mmap provides read-only memory-mapped file access.
//
// The local card store uses it to serve stored vCard objects without
// copying file contents through userspace buffers: a mapped object is
// an io.ReaderAt backed directly by the page cache.
//
//	m, err := mmap.Open("cards/alice.vcf")
//	if err != nil { ... }
//	defer m.Close()
//
//	// Hint that the object will be read front to back.
//	m.Advise(mmap.AccessSequential)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with madvise(2) for access hints
//   - Windows: CreateFileMapping/MapViewOfFile (access hints are a no-op)
//
// # Thread Safety
//
// A Mapping is safe for concurrent reads. Close is idempotent, but
// callers must ensure no goroutine touches Bytes() after Close returns.
package mmap
