// Package hostmod exposes a filehost.Host to wasm guests as the wazero host
// module "bzfile".
//
// Functions use the canonical ABI flattening for core modules: strings are
// passed as (ptr, len), handles as i32, and string or option<string> results
// are stored through a return pointer passed as the last parameter. Result
// strings are allocated with the guest's cabi_realloc export.
//
// A host error aborts the guest call; the error is returned from the
// exported function the embedder called.
package hostmod
