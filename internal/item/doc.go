// Package item provides item stacks and the indexed slot container used by
// Gray Hearth devices.
//
// A Stack is a value: an item ID and a count. The empty stack (zero value or
// count <= 0) means "nothing in this slot".
//
// A Handler is a fixed-size container of stacks with a per-slot capacity
// limit. Devices own a Handler and persist it with Serialize/Deserialize:
//
//	{"Size": 6, "Items": [{"Slot": 0, "id": "raw_cod", "Count": 1}]}
//
// Only non-empty slots are written. Deserialize tolerates missing fields and
// skips entries whose slot index is out of range.
//
// Thread Safety: Handler is not safe for concurrent use. It belongs to the
// device that owns it and is only touched from that device's tick goroutine.
package item
