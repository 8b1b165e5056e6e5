package streamfilter

import (
	"errors"

	"github.com/Lance219/pdfio/object"
)

// applyPredictor reverses the Predictor DecodeParms entry FlateDecode and
// LZWDecode streams commonly carry (xref streams in particular are almost
// always Predictor 12 — PNG Up — encoded). Predictor absent or 1 means no
// predictor was applied.
func applyPredictor(data []byte, params *object.Dictionary) ([]byte, error) {
	if params == nil {
		return data, nil
	}
	predictor, ok := params.Int("Predictor")
	if !ok || predictor <= 1 {
		return data, nil
	}
	colors := intOr(params, "Colors", 1)
	bpc := intOr(params, "BitsPerComponent", 8)
	columns := intOr(params, "Columns", 1)
	bytesPerPixel := (colors*bpc + 7) / 8
	rowBytes := (colors*bpc*columns + 7) / 8

	if predictor == 2 {
		return undoTIFFPredictor(data, rowBytes, bytesPerPixel)
	}
	if predictor >= 10 {
		return undoPNGPredictor(data, rowBytes, bytesPerPixel)
	}
	return nil, errors.New("unsupported predictor value")
}

func intOr(d *object.Dictionary, key object.Name, def int) int {
	if v, ok := d.Int(key); ok {
		return int(v)
	}
	return def
}

func undoPNGPredictor(data []byte, rowBytes, bpp int) ([]byte, error) {
	stride := rowBytes + 1 // one tag byte per row
	if stride <= 1 {
		return nil, errors.New("predictor: invalid row width")
	}
	var out []byte
	prev := make([]byte, rowBytes)
	for off := 0; off+stride <= len(data); off += stride {
		tag := data[off]
		row := append([]byte(nil), data[off+1:off+stride]...)
		for i := range row {
			var a, b byte
			if i >= bpp {
				a = row[i-bpp]
			}
			b = prev[i]
			switch tag {
			case 0: // None
			case 1: // Sub
				row[i] += a
			case 2: // Up
				row[i] += b
			case 3: // Average
				row[i] += byte((int(a) + int(b)) / 2)
			case 4: // Paeth
				var c byte
				if i >= bpp {
					c = prev[i-bpp]
				}
				row[i] += paeth(a, b, c)
			default:
				return nil, errors.New("predictor: unsupported PNG filter tag")
			}
		}
		out = append(out, row...)
		prev = row
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func undoTIFFPredictor(data []byte, rowBytes, bpp int) ([]byte, error) {
	if rowBytes <= 0 {
		return nil, errors.New("predictor: invalid row width")
	}
	out := append([]byte(nil), data...)
	for off := 0; off+rowBytes <= len(out); off += rowBytes {
		row := out[off : off+rowBytes]
		for i := bpp; i < len(row); i++ {
			row[i] += row[i-bpp]
		}
	}
	return out, nil
}
