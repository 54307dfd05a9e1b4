// Package geotiff reads single-band GeoTIFF rasters into the in-memory grid
// model. It handles classic TIFF (both byte orders), stripped and tiled
// layouts, the compression schemes flood rasters ship with, and the GeoTIFF
// tags that carry the georeference. BigTIFF and multi-band imagery are out
// of scope.
package geotiff

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/floodlab/floodarea/internal/raster"
)

// Baseline and extension tags the reader understands.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagPredictor       = 317
	tagTileWidth       = 322
	tagTileLength      = 323
	tagTileOffsets     = 324
	tagTileByteCounts  = 325
	tagSampleFormat    = 339
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagModelTransform  = 34264
	tagGeoKeyDirectory = 34735
	tagGeoDoubleParams = 34736
	tagGeoASCIIParams  = 34737
	tagGDALNoData      = 42113
)

const (
	compressionNone       = 1
	compressionLZW        = 5
	compressionDeflate    = 8
	compressionPackBits   = 32773
	compressionDeflateOld = 32946
)

// Sample format values from the SampleFormat tag.
const (
	fmtUint  = 1
	fmtInt   = 2
	fmtFloat = 3
)

var (
	// ErrUnsupported marks TIFF features outside the reader's scope, such
	// as BigTIFF, palette images, or exotic compression schemes.
	ErrUnsupported = eris.New("geotiff: unsupported format feature")
	// ErrNoGeoreference marks rasters without a usable pixel-to-world
	// transform. Area aggregation cannot proceed without one.
	ErrNoGeoreference = eris.New("geotiff: raster carries no georeference")
)

var compressionNames = map[int]string{
	compressionNone:       "none",
	compressionLZW:        "lzw",
	compressionDeflate:    "deflate",
	compressionDeflateOld: "deflate",
	compressionPackBits:   "packbits",
}

var formatNames = map[int]string{
	fmtUint:  "uint",
	fmtInt:   "int",
	fmtFloat: "float",
}

// Info describes the source encoding for inspection output.
type Info struct {
	Width         int
	Height        int
	BitsPerSample int
	SampleFormat  string
	Compression   string
	Tiled         bool
}

// Dataset is a decoded single-band GeoTIFF.
type Dataset struct {
	Grid *raster.Grid
	Info Info
}

// Open reads the GeoTIFF at path.
func Open(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geotiff: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	ds, err := Read(f)
	if err != nil {
		return nil, eris.Wrapf(err, "geotiff: read %s", path)
	}
	return ds, nil
}

// Read decodes a GeoTIFF from r. The whole file is buffered in memory;
// depth rasters at village scale stay comfortably small.
func Read(r io.Reader) (*Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "geotiff: read input")
	}
	order, first, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	dir, err := parseIFD(data, first, order)
	if err != nil {
		return nil, err
	}
	p, err := checkFormat(dir, order)
	if err != nil {
		return nil, err
	}

	values := make([]float64, p.width*p.height)
	tiled := dir.has(tagTileOffsets)
	if tiled {
		err = decodeTiles(data, dir, p, values)
	} else {
		err = decodeStrips(data, dir, p, values)
	}
	if err != nil {
		return nil, err
	}

	transform, err := parseTransform(dir)
	if err != nil {
		return nil, err
	}

	return &Dataset{
		Grid: &raster.Grid{
			Width:     p.width,
			Height:    p.height,
			Values:    values,
			NoData:    parseNoData(dir),
			Transform: transform,
			CRS:       parseCRS(dir),
		},
		Info: Info{
			Width:         p.width,
			Height:        p.height,
			BitsPerSample: p.bits,
			SampleFormat:  formatNames[p.format],
			Compression:   compressionNames[p.compression],
			Tiled:         tiled,
		},
	}, nil
}

func parseHeader(data []byte) (binary.ByteOrder, uint32, error) {
	if len(data) < 8 {
		return nil, 0, eris.New("geotiff: not a TIFF file")
	}
	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, 0, eris.New("geotiff: not a TIFF file")
	}
	switch magic := order.Uint16(data[2:4]); magic {
	case 42:
	case 43:
		return nil, 0, eris.Wrap(ErrUnsupported, "BigTIFF")
	default:
		return nil, 0, eris.Errorf("geotiff: bad magic number %d", magic)
	}
	return order, order.Uint32(data[4:8]), nil
}

// params is the validated pixel layout of the image.
type params struct {
	width, height int
	bits          int
	format        int
	compression   int
	predictor     int
	order         binary.ByteOrder
}

func checkFormat(dir ifd, order binary.ByteOrder) (params, error) {
	w := dir.value(tagImageWidth, 0)
	h := dir.value(tagImageLength, 0)
	if w <= 0 || h <= 0 {
		return params{}, eris.New("geotiff: missing image dimensions")
	}
	if spp := dir.value(tagSamplesPerPixel, 1); spp != 1 {
		return params{}, eris.Wrapf(ErrUnsupported, "multi-band image with %d samples per pixel", spp)
	}
	if photo := dir.value(tagPhotometric, 0); photo == 3 {
		return params{}, eris.Wrap(ErrUnsupported, "palette-color image")
	}

	bits := dir.value(tagBitsPerSample, 1)
	format := dir.value(tagSampleFormat, fmtUint)
	if format == 4 {
		// "Undefined" reads as unsigned, matching what GDAL writes.
		format = fmtUint
	}
	switch {
	case format == fmtFloat && (bits == 32 || bits == 64):
	case (format == fmtUint || format == fmtInt) && (bits == 8 || bits == 16 || bits == 32):
	default:
		return params{}, eris.Wrapf(ErrUnsupported, "%d-bit samples with sample format %d", bits, format)
	}

	comp := dir.value(tagCompression, compressionNone)
	if _, ok := compressionNames[comp]; !ok {
		return params{}, eris.Wrapf(ErrUnsupported, "compression scheme %d", comp)
	}

	pred := dir.value(tagPredictor, 1)
	switch {
	case pred == 1:
	case pred == 2 && format != fmtFloat:
	default:
		return params{}, eris.Wrapf(ErrUnsupported, "predictor %d", pred)
	}

	return params{
		width: w, height: h,
		bits: bits, format: format,
		compression: comp, predictor: pred,
		order: order,
	}, nil
}
