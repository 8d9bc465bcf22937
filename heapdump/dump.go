package heapdump

import (
	"bufio"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"slices"

	"github.com/hupe1980/tracegc"
)

const (
	// Version is the format version written by Write.
	Version uint8 = 1

	headerSize = 16

	// slotFixedSize is the encoded size of a slot without its edges.
	slotFixedSize = 4 + 4 + 4 + 4 + 8 + 8 + 1 + 4
	refSize       = 8

	maxBodySize = 1 << 30
)

var magic = [4]byte{'T', 'G', 'C', 'D'}

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

var (
	// ErrBadMagic is returned when the input is not a heap dump.
	ErrBadMagic = errors.New("heapdump: bad magic")

	// ErrUnsupportedVersion is returned for dumps written by a newer format.
	ErrUnsupportedVersion = errors.New("heapdump: unsupported version")

	// ErrUnsupportedCompression is returned for an unknown compression type.
	ErrUnsupportedCompression = errors.New("heapdump: unsupported compression")

	// ErrChecksumMismatch is returned when the trailer does not match the data.
	ErrChecksumMismatch = errors.New("heapdump: checksum mismatch")

	// ErrCorrupt is returned when the body cannot be decoded.
	ErrCorrupt = errors.New("heapdump: corrupt body")
)

// Options configures Write.
type Options struct {
	Compression Compression
}

// Dump is a decoded heap dump.
type Dump struct {
	Version     uint8
	Compression Compression
	Slots       []tracegc.SlotInfo
}

// WriteCollector snapshots c and writes the dump to w.
func WriteCollector(w io.Writer, c *tracegc.Collector, opts Options) error {
	return Write(w, c.Snapshot(), opts)
}

// Write encodes slots to w.
func Write(w io.Writer, slots []tracegc.SlotInfo, opts Options) error {
	body := encodeBody(slots)
	if len(body) > maxBodySize {
		return fmt.Errorf("heapdump: body of %d bytes exceeds limit", len(body))
	}

	stored, err := compress(body, opts.Compression)
	if err != nil {
		return err
	}

	header := make([]byte, headerSize)
	copy(header, magic[:])
	header[4] = Version
	header[5] = byte(opts.Compression)
	binary.LittleEndian.PutUint32(header[8:], uint32(len(body))) //nolint:gosec // bounded by maxBodySize
	binary.LittleEndian.PutUint32(header[12:], uint32(len(stored)))
	if stored == nil {
		stored = body
	}

	crc := crc32.New(crc32cTable)
	bw := bufio.NewWriter(io.MultiWriter(w, crc))
	if _, err := bw.Write(header); err != nil {
		return err
	}
	if _, err := bw.Write(stored); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	return binary.Write(w, binary.LittleEndian, crc.Sum32())
}

func encodeBody(slots []tracegc.SlotInfo) []byte {
	n := 4
	for _, s := range slots {
		n += slotFixedSize + refSize*len(s.Refs)
	}

	buf := make([]byte, 0, n)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(slots))) //nolint:gosec // bounded by table capacity
	for _, s := range slots {
		buf = binary.LittleEndian.AppendUint32(buf, s.Handle.Index())
		buf = binary.LittleEndian.AppendUint32(buf, s.Handle.Generation())
		buf = binary.LittleEndian.AppendUint32(buf, uint32(s.Tag))
		buf = binary.LittleEndian.AppendUint32(buf, s.Pins)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(s.Addr))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(s.Size)) //nolint:gosec // sign preserved on decode
		var flags byte
		if s.Finalizing {
			flags |= 1
		}
		buf = append(buf, flags)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s.Refs))) //nolint:gosec // bounded by body limit
		for _, r := range s.Refs {
			buf = binary.LittleEndian.AppendUint32(buf, r.Index())
			buf = binary.LittleEndian.AppendUint32(buf, r.Generation())
		}
	}
	return buf
}

// Read decodes a dump written by Write.
func Read(r io.Reader) (*Dump, error) {
	crc := crc32.New(crc32cTable)
	tr := io.TeeReader(r, crc)

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(tr, header); err != nil {
		return nil, fmt.Errorf("heapdump: read header: %w", err)
	}
	if [4]byte(header[:4]) != magic {
		return nil, ErrBadMagic
	}
	version := header[4]
	if version == 0 || version > Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	comp := Compression(header[5])
	size := binary.LittleEndian.Uint32(header[8:])
	storedSize := binary.LittleEndian.Uint32(header[12:])
	if size > maxBodySize || storedSize > maxBodySize {
		return nil, fmt.Errorf("%w: body too large", ErrCorrupt)
	}

	readSize := size
	if storedSize != 0 {
		readSize = storedSize
	}
	stored := make([]byte, readSize)
	if _, err := io.ReadFull(tr, stored); err != nil {
		return nil, fmt.Errorf("heapdump: read body: %w", err)
	}

	var want uint32
	if err := binary.Read(r, binary.LittleEndian, &want); err != nil {
		return nil, fmt.Errorf("heapdump: read trailer: %w", err)
	}
	if crc.Sum32() != want {
		return nil, ErrChecksumMismatch
	}

	body := stored
	if storedSize != 0 {
		var err error
		if body, err = decompress(stored, size, comp); err != nil {
			return nil, err
		}
	}

	slots, err := decodeBody(body)
	if err != nil {
		return nil, err
	}
	return &Dump{Version: version, Compression: comp, Slots: slots}, nil
}

func decodeBody(buf []byte) ([]tracegc.SlotInfo, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("%w: missing slot count", ErrCorrupt)
	}
	count := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	if uint64(count)*slotFixedSize > uint64(len(buf)) {
		return nil, fmt.Errorf("%w: slot count %d exceeds body", ErrCorrupt, count)
	}

	slots := make([]tracegc.SlotInfo, 0, count)
	for i := range count {
		if len(buf) < slotFixedSize {
			return nil, fmt.Errorf("%w: slot %d truncated", ErrCorrupt, i)
		}
		h := tracegc.NewHandle(binary.LittleEndian.Uint32(buf[0:]), binary.LittleEndian.Uint32(buf[4:]))
		s := tracegc.SlotInfo{
			Handle:     h,
			Tag:        tracegc.TypeTag(binary.LittleEndian.Uint32(buf[8:])),
			Pins:       binary.LittleEndian.Uint32(buf[12:]),
			Addr:       uintptr(binary.LittleEndian.Uint64(buf[16:])),
			Size:       int64(binary.LittleEndian.Uint64(buf[24:])), //nolint:gosec // round-trips the encoded sign
			Finalizing: buf[32]&1 != 0,
		}
		nrefs := binary.LittleEndian.Uint32(buf[33:])
		buf = buf[slotFixedSize:]

		if uint64(nrefs)*refSize > uint64(len(buf)) {
			return nil, fmt.Errorf("%w: slot %d refs truncated", ErrCorrupt, i)
		}
		if nrefs > 0 {
			s.Refs = make([]tracegc.Handle, nrefs)
			for j := range s.Refs {
				s.Refs[j] = tracegc.NewHandle(binary.LittleEndian.Uint32(buf[0:]), binary.LittleEndian.Uint32(buf[4:]))
				buf = buf[refSize:]
			}
		}
		slots = append(slots, s)
	}
	if len(buf) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(buf))
	}
	return slots, nil
}

// TagStats summarizes the slots sharing one type tag.
type TagStats struct {
	Count int
	Bytes int64
	Pins  uint64
}

// ByTag groups the live slots of d by type tag.
func (d *Dump) ByTag() map[tracegc.TypeTag]TagStats {
	out := make(map[tracegc.TypeTag]TagStats)
	for _, s := range d.Slots {
		if s.Finalizing {
			continue
		}
		st := out[s.Tag]
		st.Count++
		st.Bytes += s.Size
		st.Pins += uint64(s.Pins)
		out[s.Tag] = st
	}
	return out
}

// Unreachable returns the handles of live slots that the next cycle would
// reclaim given the extra roots, in index order. Pinned slots count as roots.
func (d *Dump) Unreachable(roots ...tracegc.Handle) []tracegc.Handle {
	byHandle := make(map[tracegc.Handle]int, len(d.Slots))
	for i, s := range d.Slots {
		if !s.Finalizing {
			byHandle[s.Handle] = i
		}
	}

	marked := make([]bool, len(d.Slots))
	var stack []int
	push := func(h tracegc.Handle) {
		i, ok := byHandle[h]
		if !ok || marked[i] {
			return
		}
		marked[i] = true
		stack = append(stack, i)
	}

	for _, h := range roots {
		push(h)
	}
	for _, s := range d.Slots {
		if s.Pins > 0 {
			push(s.Handle)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, r := range d.Slots[i].Refs {
			push(r)
		}
	}

	var out []tracegc.Handle
	for i, s := range d.Slots {
		if !marked[i] && !s.Finalizing {
			out = append(out, s.Handle)
		}
	}
	slices.SortFunc(out, func(a, b tracegc.Handle) int {
		return cmp.Compare(a.Index(), b.Index())
	})
	return out
}
