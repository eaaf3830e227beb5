package shmq

import (
	"sync/atomic"
	"unsafe"
)

// loadInt32Acquire and storeInt32Release give the mmap'd tail_location and
// next_message_location fields the same acquire/release discipline the
// upstream C gives its `volatile int32_t` fields: the reader must observe
// a non-(-1) next_message_location before it may read the message body it
// points to, and the writer must publish the message body before it
// writes the pointer that makes it visible.
//
// These operate directly on the shared mapping via a pointer cast rather
// than through a typed atomic field, because the field lives inside a
// []byte that was handed to us by mmap, not inside a Go-managed struct.
func loadInt32Acquire(buf []byte, offset int32) int32 {
	p := (*int32)(unsafe.Pointer(&buf[offset]))
	return atomic.LoadInt32(p)
}

func storeInt32Release(buf []byte, offset int32, v int32) {
	p := (*int32)(unsafe.Pointer(&buf[offset]))
	atomic.StoreInt32(p, v)
}

// loadInt32 is a plain (non-atomic) read of a field whose visibility is
// already established by a prior acquire load elsewhere, such as a message
// header's len/ack_id once its next-pointer has been observed.
func loadInt32(buf []byte, offset int32) int32 {
	return int32(buf[offset]) | int32(buf[offset+1])<<8 | int32(buf[offset+2])<<16 | int32(buf[offset+3])<<24
}
