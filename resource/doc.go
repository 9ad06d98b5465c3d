// Package resource provides the host-owned handle table behind guest-visible
// resources.
//
// A guest never sees a host value directly. It holds an integer Handle that
// names a slot in a Table; the slot is the host-side memory of the resource
// and lives until the guest finalizes it.
//
// # Resource Lifecycle
//
// A slot passes through two independent teardown steps:
//
//	close    - resource-specific; releases OS state, slot stays allocated
//	finalize - Remove/Collect; frees the slot and calls Finalize on the value
//
// Finalize may run after an explicit close, so Finalizer implementations must
// be idempotent with respect to the OS state they release. The table
// invalidates a slot before calling Finalize, so a value is finalized at most
// once no matter how many times its handle is removed.
//
// # Handle Table
//
//	table := resource.NewTable()
//
//	// Insert a value, get a handle
//	handle, err := table.Insert(typeID, myValue)
//
//	// Retrieve value by handle
//	value, ok := table.Get(handle)
//
//	// Free the slot and finalize the value
//	value, ok := table.Remove(handle)
//
// Handle 0 is never issued. Freed handles are recycled.
//
// # Type Safety
//
// Each resource type gets a type ID. Typed wraps a table for one type:
//
//	files := resource.NewTyped[*File](table, FileTypeID)
//	f, ok := files.Get(handle) // false for handles of other types
//
// # Observers
//
// Register observers to track resource lifecycle events:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    log.Printf("%s handle=%d", e.Type, e.Handle)
//	}))
//
// # Collection
//
// Collect finalizes every live slot. Close collects and then rejects new
// inserts; it is what an instance teardown calls.
package resource
