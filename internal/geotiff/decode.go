package geotiff

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"math"

	"github.com/rotisserie/eris"
	"golang.org/x/image/tiff/lzw"
)

func decodeStrips(data []byte, dir ifd, p params, values []float64) error {
	rps := dir.value(tagRowsPerStrip, p.height)
	if rps <= 0 || rps > p.height {
		rps = p.height
	}
	offsets := dir.values(tagStripOffsets)
	counts := dir.values(tagStripByteCounts)
	strips := (p.height + rps - 1) / rps
	if len(offsets) < strips || len(counts) < strips {
		return eris.Errorf("geotiff: %d strips declared, offsets for %d", strips, len(offsets))
	}

	bps := p.bits / 8
	for s := 0; s < strips; s++ {
		rows := rps
		if rem := p.height - s*rps; rem < rows {
			rows = rem
		}
		seg, err := segment(data, offsets[s], counts[s])
		if err != nil {
			return err
		}
		buf, err := decompress(seg, p.compression, rows*p.width*bps)
		if err != nil {
			return err
		}
		if p.predictor == 2 {
			undoPredictor(buf, p.width, rows, bps, p.order)
		}
		base := s * rps * p.width
		for i := 0; i < rows*p.width; i++ {
			values[base+i] = sampleAt(buf, i, p.bits, p.format, p.order)
		}
	}
	return nil
}

func decodeTiles(data []byte, dir ifd, p params, values []float64) error {
	tw := dir.value(tagTileWidth, 0)
	th := dir.value(tagTileLength, 0)
	if tw <= 0 || th <= 0 {
		return eris.New("geotiff: tiled image without tile dimensions")
	}
	offsets := dir.values(tagTileOffsets)
	counts := dir.values(tagTileByteCounts)
	across := (p.width + tw - 1) / tw
	down := (p.height + th - 1) / th
	if len(offsets) < across*down || len(counts) < across*down {
		return eris.Errorf("geotiff: %d tiles declared, offsets for %d", across*down, len(offsets))
	}

	bps := p.bits / 8
	for ty := 0; ty < down; ty++ {
		for tx := 0; tx < across; tx++ {
			idx := ty*across + tx
			seg, err := segment(data, offsets[idx], counts[idx])
			if err != nil {
				return err
			}
			// Edge tiles are padded to full tile size.
			buf, err := decompress(seg, p.compression, tw*th*bps)
			if err != nil {
				return err
			}
			if p.predictor == 2 {
				undoPredictor(buf, tw, th, bps, p.order)
			}
			for row := 0; row < th; row++ {
				gr := ty*th + row
				if gr >= p.height {
					break
				}
				for col := 0; col < tw; col++ {
					gc := tx*tw + col
					if gc >= p.width {
						break
					}
					values[gr*p.width+gc] = sampleAt(buf, row*tw+col, p.bits, p.format, p.order)
				}
			}
		}
	}
	return nil
}

func segment(data []byte, off, count int) ([]byte, error) {
	if off < 0 || count < 0 || off+count > len(data) {
		return nil, eris.Errorf("geotiff: segment [%d:%d] outside file", off, off+count)
	}
	return data[off : off+count], nil
}

// decompress expands one strip or tile to exactly expected bytes.
func decompress(src []byte, compression, expected int) ([]byte, error) {
	switch compression {
	case compressionNone:
		if len(src) < expected {
			return nil, eris.Errorf("geotiff: segment holds %d bytes, want %d", len(src), expected)
		}
		return src[:expected], nil
	case compressionLZW:
		rc := lzw.NewReader(bytes.NewReader(src), lzw.MSB, 8)
		defer rc.Close() //nolint:errcheck
		return readSegment(rc, expected)
	case compressionDeflate, compressionDeflateOld:
		zr, err := zlib.NewReader(bytes.NewReader(src))
		if err != nil {
			return nil, eris.Wrap(err, "geotiff: open deflate segment")
		}
		defer zr.Close() //nolint:errcheck
		return readSegment(zr, expected)
	case compressionPackBits:
		return unpackBits(src, expected)
	default:
		return nil, eris.Wrapf(ErrUnsupported, "compression scheme %d", compression)
	}
}

func readSegment(r io.Reader, expected int) ([]byte, error) {
	buf := make([]byte, expected)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, eris.Wrap(err, "geotiff: segment truncated")
	}
	return buf, nil
}

// unpackBits expands the PackBits run-length scheme from TIFF section 9.
func unpackBits(src []byte, expected int) ([]byte, error) {
	dst := make([]byte, 0, expected)
	for i := 0; i < len(src) && len(dst) < expected; {
		n := int(int8(src[i]))
		i++
		switch {
		case n >= 0:
			if i+n+1 > len(src) {
				return nil, eris.New("geotiff: truncated packbits literal")
			}
			dst = append(dst, src[i:i+n+1]...)
			i += n + 1
		case n == -128:
			// no-op byte
		default:
			if i >= len(src) {
				return nil, eris.New("geotiff: truncated packbits run")
			}
			for j := 0; j < 1-n; j++ {
				dst = append(dst, src[i])
			}
			i++
		}
	}
	if len(dst) < expected {
		return nil, eris.Errorf("geotiff: packbits expanded to %d bytes, want %d", len(dst), expected)
	}
	return dst[:expected], nil
}

// undoPredictor reverses horizontal differencing in place, row by row.
func undoPredictor(buf []byte, width, rows, bps int, order binary.ByteOrder) {
	for r := 0; r < rows; r++ {
		row := buf[r*width*bps : (r+1)*width*bps]
		switch bps {
		case 1:
			for c := 1; c < width; c++ {
				row[c] += row[c-1]
			}
		case 2:
			for c := 1; c < width; c++ {
				order.PutUint16(row[c*2:], order.Uint16(row[c*2:])+order.Uint16(row[(c-1)*2:]))
			}
		case 4:
			for c := 1; c < width; c++ {
				order.PutUint32(row[c*4:], order.Uint32(row[c*4:])+order.Uint32(row[(c-1)*4:]))
			}
		}
	}
}

func sampleAt(buf []byte, i, bits, format int, order binary.ByteOrder) float64 {
	switch format {
	case fmtFloat:
		if bits == 32 {
			return float64(math.Float32frombits(order.Uint32(buf[i*4:])))
		}
		return math.Float64frombits(order.Uint64(buf[i*8:]))
	case fmtInt:
		switch bits {
		case 8:
			return float64(int8(buf[i]))
		case 16:
			return float64(int16(order.Uint16(buf[i*2:])))
		default:
			return float64(int32(order.Uint32(buf[i*4:])))
		}
	default:
		switch bits {
		case 8:
			return float64(buf[i])
		case 16:
			return float64(order.Uint16(buf[i*2:]))
		default:
			return float64(order.Uint32(buf[i*4:]))
		}
	}
}
