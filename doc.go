// Package bzfile exposes host file streams to WebAssembly guests as opaque
// resource handles whose lifetime the guest controls.
//
// A guest opens a file and receives a handle. The stream behind it lives in
// host memory owned by the guest instance. The guest can close the stream
// early; the host slot itself is only released when the guest drops the
// handle or the instance is closed. Closing the OS file happens exactly once
// on whichever path comes first.
//
// # Architecture Overview
//
//	bzfile/              Root package with the guest Memory and Allocator interfaces
//	├── stream/          Buffered file stream: open modes, read/write/line/dump
//	├── resource/        Host-owned handle table with finalizers and observers
//	├── filehost/        Handle lifecycle, operation dispatch, capability set
//	├── hostmod/         wazero host module "bzfile" (canonical ABI lowering)
//	├── runtime/         wazero runtime with the bzfile module linked
//	├── errors/          Structured error types
//	└── cmd/bzfile/      Runner and interactive console
//
// # Quick Start
//
// Run a guest module against the host module:
//
//	rt, err := runtime.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	mod, err := rt.LoadWASM(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx) // finalizes every handle the guest still holds
//
//	_, err = inst.Call(ctx, "run")
//
// Or drive the host directly from Go:
//
//	host, err := filehost.New(&filehost.Config{Debug: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer host.Close()
//
//	h, _ := host.Open(ctx, "save.txt", "w", "trunc")
//	host.MethodFileWriteLine(ctx, h, "hello")
//	host.MethodFileClose(ctx, h)
//	host.ResourceDropFile(ctx, h)
//
// # Guest Imports
//
// Guests import functions from the "bzfile" module. Names follow WIT
// conventions:
//
//	open                       (path, mode, sub-mode) -> file
//	[method]file.write         (self, text) -> file
//	[method]file.write-line    (self, text) -> file
//	[method]file.read          (self, count) -> option<string>
//	[method]file.read-line     (self) -> option<string>
//	[method]file.dump          (self) -> string
//	[method]file.flush         (self) -> file
//	[method]file.close         (self)
//	[resource-drop]file        (self)
//	get-working-directory      () -> string
//	get-workshop-directory     () -> string
//	make-directory             (path)
//
// # Thread Safety
//
// A Host may be shared by the runtime, but a single guest instance is never
// entered concurrently, so streams carry no locks.
package bzfile
