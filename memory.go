package bzfile

// Memory is the guest linear memory seen by host functions.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU32(offset uint32) (uint32, error)
	WriteU8(offset uint32, value uint8) error
	WriteU32(offset uint32, value uint32) error
}

// Allocator allocates memory in guest linear memory.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
}
