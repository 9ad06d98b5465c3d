// Package runtime runs core WebAssembly guests with the bzfile host module
// linked.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx, &runtime.Config{
//	    Host: &filehost.Config{Debug: true},
//	})
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
//	defer inst.Close(ctx)
//
//	_, err = inst.Call(ctx, "run")
//
// # Handle Ownership
//
// File handles live in the runtime's filehost.Host. A guest releases them
// with [resource-drop]file; whatever it still holds when the instance is
// closed is finalized by Instance.Close. Because handles belong to the
// running guest, a runtime allows one live instance at a time.
//
// Modules are instantiated with wasi_snapshot_preview1 linked (unless
// Config.DisableWASI is set) and only _initialize runs at start, so command
// modules are started by calling _start explicitly.
package runtime
