// Package addr maps raw object addresses back to handle table indices.
//
// The collector uses it to reject a second registration of an address that is
// still live, and to answer address-based queries (is this object managed,
// is it pending kill) without scanning the table.
//
// The registry is split into 64 shards picked by the xxhash of the address,
// each guarded by its own RWMutex, so lookups from application goroutines do
// not contend on one map.
package addr
