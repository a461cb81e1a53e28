// Package stove implements the six-slot cooking stove.
//
// A stove holds up to six single-item stacks, one per slot, each with its
// own cooking timer. While lit, every occupied slot advances one tick at a
// time; when a slot's timer reaches its total the input is consumed and
// the recipe result is thrown into the world above the stove. While unlit,
// progress decays by two ticks per tick. If anything solid sits in the
// grilling area above the stove, every held item is ejected instead.
//
// # Sides
//
// Each stove runs on exactly one side:
//
//   - Advance is the authoritative tick. It is the only code that changes
//     inventory or cooking progress.
//   - EmitEffects is the presentation tick. It only reads state and emits
//     smoke particles above occupied slots.
//
// The scheduler picks one or the other based on the process role; see
// internal/scheduler.
//
// # Persistence
//
// Save and Load move a stove to and from a Record, a keyed JSON map:
//
//	{
//	  "Inventory":         {"Size": 6, "Items": [{"Slot": 0, "id": "cod", "Count": 1}]},
//	  "CookingTimes":      [120, 0, 0, 0, 0, 0],
//	  "CookingTotalTimes": [600, 0, 0, 0, 0, 0]
//	}
//
// Load accepts short arrays and the older flat layout (container fields at
// the top level). The Registry keeps placed stoves in memory and writes
// records through a Repository; SQLiteRepository is the production backend.
//
// # Usage
//
//	repo := stove.NewSQLiteRepository(db.DB)
//	registry := stove.NewRegistry(repo, stove.Bind(w, catalog))
//	registry.SetLogger(log)
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	s, err := registry.Place(ctx, world.BlockPos{X: 10, Y: 64, Z: -3}, world.FacingNorth)
//	stack := item.NewStack("cod", 4)
//	s.AddItem(&stack) // stack.Count == 3
//	s.SetLit(true)
package stove
