// Package resource maps integer handles to live host values.
//
// A Table hands out uint32 handles starting at 1. Handles are never reused:
// once removed, a handle stays invalid for the lifetime of the table.
//
//	table := resource.NewTable[*runtime.Module]()
//	h, err := table.Insert(mod)
//	mod, ok := table.Get(h)
//	mod, ok = table.Remove(h)
//
// Observers receive EventCreated and EventDropped notifications outside
// the table lock:
//
//	unsubscribe := table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    log.Printf("handle %d %s", e.Handle, e.Type)
//	}))
//	defer unsubscribe()
//
// Values are not closed by the table. Drain and Close return the removed
// values so the owner can release them.
package resource
