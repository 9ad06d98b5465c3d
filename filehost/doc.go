// Package filehost manages file handles on behalf of a guest instance.
//
// A handle is created by Open and lives in the host's resource table until
// the guest drops it or the host is closed. Two lifecycle steps are kept
// apart:
//
//   - MethodFileClose closes the stream. The handle stays allocated and
//     further operations on it fail.
//   - ResourceDropFile frees the slot and runs the finalizer, which releases
//     the stream if it is still open.
//
// Every file shares one CapabilitySet. Host methods resolve the handle and
// dispatch to the capability of the same name; File.Invoke does the same for
// callers holding a *File. With Config.Debug each operation first checks that
// the handle names an open file and fails with a precondition violation
// otherwise.
package filehost
