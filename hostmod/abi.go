package hostmod

import (
	stderrors "errors"

	"github.com/wippyai/bzfile"
)

var errNoRealloc = stderrors.New("guest exports no cabi_realloc")

// Canonical ABI layout of the results written through a return pointer.
const (
	stringAlign = 1

	// string: ptr at +0, len at +4
	stringLenOffset = 4

	// option<string>: discriminant at +0, payload aligned to 4
	optionPayloadOffset = 4
)

func readString(mem bzfile.Memory, ptr, length uint64) (string, error) {
	if length == 0 {
		return "", nil
	}
	data, err := mem.Read(uint32(ptr), uint32(length))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// storeString copies s into freshly allocated guest memory.
func storeString(mem bzfile.Memory, alloc bzfile.Allocator, s string) (ptr, length uint32, err error) {
	length = uint32(len(s))
	ptr, err = alloc.Alloc(length, stringAlign)
	if err != nil {
		return 0, 0, err
	}
	if length > 0 {
		if err := mem.Write(ptr, []byte(s)); err != nil {
			return 0, 0, err
		}
	}
	return ptr, length, nil
}

func writeString(mem bzfile.Memory, alloc bzfile.Allocator, retptr uint32, s string) error {
	ptr, length, err := storeString(mem, alloc, s)
	if err != nil {
		return err
	}
	if err := mem.WriteU32(retptr, ptr); err != nil {
		return err
	}
	return mem.WriteU32(retptr+stringLenOffset, length)
}

func writeOptionString(mem bzfile.Memory, alloc bzfile.Allocator, retptr uint32, s *string) error {
	if s == nil {
		return mem.WriteU8(retptr, 0)
	}
	if err := mem.WriteU8(retptr, 1); err != nil {
		return err
	}
	return writeString(mem, alloc, retptr+optionPayloadOffset, *s)
}
