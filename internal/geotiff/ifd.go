package geotiff

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// TIFF field types.
const (
	typeByte      = 1
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeSByte     = 6
	typeUndefined = 7
	typeSShort    = 8
	typeSLong     = 9
	typeSRational = 10
	typeFloat     = 11
	typeDouble    = 12
)

var typeSizes = map[uint16]int{
	typeByte:      1,
	typeASCII:     1,
	typeShort:     2,
	typeLong:      4,
	typeRational:  8,
	typeSByte:     1,
	typeUndefined: 1,
	typeSShort:    2,
	typeSLong:     4,
	typeSRational: 8,
	typeFloat:     4,
	typeDouble:    8,
}

// entry is one IFD field with its value bytes already resolved, whether they
// sat inline or behind an offset.
type entry struct {
	typ   uint16
	count uint32
	raw   []byte
	order binary.ByteOrder
}

// ifd is a parsed image file directory keyed by tag.
type ifd map[uint16]entry

// parseIFD reads the directory at off. Fields with unknown types are
// skipped rather than failing the file.
func parseIFD(data []byte, off uint32, order binary.ByteOrder) (ifd, error) {
	if int64(off)+2 > int64(len(data)) {
		return nil, eris.New("geotiff: truncated IFD")
	}
	n := int(order.Uint16(data[off:]))
	base := int(off) + 2
	if base+n*12+4 > len(data) {
		return nil, eris.New("geotiff: truncated IFD")
	}

	dir := make(ifd, n)
	for i := 0; i < n; i++ {
		b := data[base+i*12:]
		tag := order.Uint16(b)
		typ := order.Uint16(b[2:])
		count := order.Uint32(b[4:])
		size, ok := typeSizes[typ]
		if !ok {
			continue
		}
		total := size * int(count)
		var raw []byte
		if total <= 4 {
			raw = b[8 : 8+total]
		} else {
			voff := int(order.Uint32(b[8:]))
			if voff < 0 || voff+total > len(data) {
				return nil, eris.Errorf("geotiff: tag %d value outside file", tag)
			}
			raw = data[voff : voff+total]
		}
		dir[tag] = entry{typ: typ, count: count, raw: raw, order: order}
	}
	return dir, nil
}

func (e entry) ints() []int {
	out := make([]int, 0, e.count)
	for i := 0; i < int(e.count); i++ {
		switch e.typ {
		case typeByte, typeUndefined:
			out = append(out, int(e.raw[i]))
		case typeSByte:
			out = append(out, int(int8(e.raw[i])))
		case typeShort:
			out = append(out, int(e.order.Uint16(e.raw[i*2:])))
		case typeSShort:
			out = append(out, int(int16(e.order.Uint16(e.raw[i*2:]))))
		case typeLong:
			out = append(out, int(e.order.Uint32(e.raw[i*4:])))
		case typeSLong:
			out = append(out, int(int32(e.order.Uint32(e.raw[i*4:]))))
		}
	}
	return out
}

func (e entry) floats() []float64 {
	switch e.typ {
	case typeRational, typeSRational:
		out := make([]float64, 0, e.count)
		for i := 0; i < int(e.count); i++ {
			num := e.order.Uint32(e.raw[i*8:])
			den := e.order.Uint32(e.raw[i*8+4:])
			if den == 0 {
				out = append(out, 0)
				continue
			}
			if e.typ == typeSRational {
				out = append(out, float64(int32(num))/float64(int32(den)))
			} else {
				out = append(out, float64(num)/float64(den))
			}
		}
		return out
	case typeFloat:
		out := make([]float64, 0, e.count)
		for i := 0; i < int(e.count); i++ {
			out = append(out, float64(math.Float32frombits(e.order.Uint32(e.raw[i*4:]))))
		}
		return out
	case typeDouble:
		out := make([]float64, 0, e.count)
		for i := 0; i < int(e.count); i++ {
			out = append(out, math.Float64frombits(e.order.Uint64(e.raw[i*8:])))
		}
		return out
	default:
		ints := e.ints()
		out := make([]float64, len(ints))
		for i, v := range ints {
			out[i] = float64(v)
		}
		return out
	}
}

func (e entry) ascii() string {
	return strings.TrimRight(string(e.raw), "\x00")
}

func (d ifd) has(tag uint16) bool {
	_, ok := d[tag]
	return ok
}

// value returns the first integer of a tag, or def when absent.
func (d ifd) value(tag uint16, def int) int {
	e, ok := d[tag]
	if !ok {
		return def
	}
	vs := e.ints()
	if len(vs) == 0 {
		return def
	}
	return vs[0]
}

func (d ifd) values(tag uint16) []int {
	if e, ok := d[tag]; ok {
		return e.ints()
	}
	return nil
}

func (d ifd) floats(tag uint16) []float64 {
	if e, ok := d[tag]; ok {
		return e.floats()
	}
	return nil
}

func (d ifd) text(tag uint16) string {
	if e, ok := d[tag]; ok {
		return e.ascii()
	}
	return ""
}
