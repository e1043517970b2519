package sketches

import (
	"encoding/binary"
	"math"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketcherr"
)

// serialVersion is the second byte of every image written by this package.
const serialVersion = 1

// encoder appends a little-endian image behind a [family id, version] header.
type encoder struct {
	buf []byte
}

func newEncoder(f Family, sizeHint int) *encoder {
	e := &encoder{buf: make([]byte, 0, 2+sizeHint)}
	e.buf = append(e.buf, f.id(), serialVersion)
	return e
}

func (e *encoder) u8(v uint8)    { e.buf = append(e.buf, v) }
func (e *encoder) u32(v uint32)  { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }
func (e *encoder) u64(v uint64)  { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }
func (e *encoder) i64(v int64)   { e.u64(uint64(v)) }
func (e *encoder) f64(v float64) { e.u64(math.Float64bits(v)) }

func (e *encoder) blob(b []byte) {
	e.u32(uint32(len(b)))
	e.buf = append(e.buf, b...)
}

func (e *encoder) str(s string) {
	e.u32(uint32(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *encoder) bytes() []byte { return e.buf }

// decoder reads an image written by encoder. The first failure sticks; later
// reads return zero values and done reports it.
type decoder struct {
	f    Family
	data []byte
	off  int
	err  error
}

func newDecoder(f Family, data []byte) (*decoder, error) {
	if len(data) < 2 {
		return nil, sketcherr.Validationf("%s image too short: %d bytes", f, len(data))
	}
	if data[0] != f.id() {
		return nil, sketcherr.Validationf("image is not a %s sketch (family id %d)", f, data[0])
	}
	if data[1] != serialVersion {
		return nil, sketcherr.Validationf("unsupported %s serial version %d", f, data[1])
	}
	return &decoder{f: f, data: data, off: 2}, nil
}

func (d *decoder) need(n int) bool {
	if d.err != nil {
		return false
	}
	if n < 0 || len(d.data)-d.off < n {
		d.err = sketcherr.Validationf("truncated %s image at offset %d", d.f, d.off)
		return false
	}
	return true
}

func (d *decoder) fail(format string, args ...interface{}) {
	if d.err == nil {
		d.err = sketcherr.Validationf("corrupt %s image: "+format, append([]interface{}{d.f}, args...)...)
	}
}

func (d *decoder) u8() uint8 {
	if !d.need(1) {
		return 0
	}
	v := d.data[d.off]
	d.off++
	return v
}

func (d *decoder) u32() uint32 {
	if !d.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(d.data[d.off:])
	d.off += 4
	return v
}

func (d *decoder) u64() uint64 {
	if !d.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(d.data[d.off:])
	d.off += 8
	return v
}

func (d *decoder) i64() int64   { return int64(d.u64()) }
func (d *decoder) f64() float64 { return math.Float64frombits(d.u64()) }

func (d *decoder) blob() []byte {
	n := int(d.u32())
	if !d.need(n) {
		return nil
	}
	b := make([]byte, n)
	copy(b, d.data[d.off:d.off+n])
	d.off += n
	return b
}

func (d *decoder) str() string {
	n := int(d.u32())
	if !d.need(n) {
		return ""
	}
	s := string(d.data[d.off : d.off+n])
	d.off += n
	return s
}

// count reads an element count and checks that enough bytes remain for that
// many elements of at least minSize bytes, so corrupt counts cannot force
// huge allocations.
func (d *decoder) count(minSize int) int {
	n := int(d.u32())
	if d.err != nil {
		return 0
	}
	if minSize > 0 && n > (len(d.data)-d.off)/minSize {
		d.fail("count %d exceeds remaining %d bytes", n, len(d.data)-d.off)
		return 0
	}
	return n
}

func (d *decoder) done() error {
	if d.err != nil {
		return d.err
	}
	if d.off != len(d.data) {
		return sketcherr.Validationf("corrupt %s image: %d trailing bytes", d.f, len(d.data)-d.off)
	}
	return nil
}
