package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/bsky-shogi-thread/internal/shogi"
)

// Piece outlines in a 100x100 view box. Gote pieces point down the board.
const (
	senteKomaPath = "M50 6 L78 17 L90 94 L10 94 L22 17 Z"
	goteKomaPath  = "M50 94 L78 83 L90 6 L10 6 L22 83 Z"
)

func komaSVG(c shogi.Color) []byte {
	path := senteKomaPath
	if c == shogi.Gote {
		path = goteKomaPath
	}
	return []byte(fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">`+
			`<path d="%s" fill="#f6dfa9" stroke="#6b4a24" stroke-width="3" stroke-linejoin="round"/>`+
			`</svg>`, path))
}

type komaKey struct {
	color shogi.Color
	size  int
}

var (
	komaCache   = map[komaKey]image.Image{}
	komaCacheMu sync.RWMutex
)

// komaImage rasterizes the piece outline for c at size pixels.
func komaImage(c shogi.Color, size int) (image.Image, error) {
	key := komaKey{color: c, size: size}

	komaCacheMu.RLock()
	if img, ok := komaCache[key]; ok {
		komaCacheMu.RUnlock()
		return img, nil
	}
	komaCacheMu.RUnlock()

	icon, err := oksvg.ReadIconStream(bytes.NewReader(komaSVG(c)))
	if err != nil {
		return nil, fmt.Errorf("parse koma svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	komaCacheMu.Lock()
	komaCache[key] = img
	komaCacheMu.Unlock()
	return img, nil
}

// pieceLabel is the glyph text drawn on a piece: the USI letter, prefixed
// with "+" when promoted.
func pieceLabel(k shogi.Kind) string {
	l := string(k.Letter())
	if k.IsPromoted() {
		return "+" + l
	}
	return l
}
