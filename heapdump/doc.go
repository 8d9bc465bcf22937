// Package heapdump writes and reads snapshots of a collector's object graph.
//
// A dump records every occupied slot with its handle, type tag, pin count,
// accounted size and outgoing edges. It can be loaded offline to find what is
// keeping objects alive or what the next cycle would reclaim.
//
// # Format
//
//	[magic "TGCD"][version u8][compression u8][reserved u16]
//	[uncompressed size u32][stored size u32]
//	[body ...]
//	[crc32c u32]
//
// The body is little-endian and optionally compressed with LZ4 or Zstandard.
// A stored size of zero means the body is kept uncompressed because
// compression did not pay off. The checksum covers header and stored body.
//
// # Usage
//
//	var buf bytes.Buffer
//	_ = heapdump.WriteCollector(&buf, gc, heapdump.Options{Compression: heapdump.CompressionZstd})
//
//	d, _ := heapdump.Read(&buf)
//	garbage := d.Unreachable(roots...)
package heapdump
