package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/park285/bsky-shogi-thread/internal/shogi"
)

const (
	defaultSquareSize = 60
	outerMargin       = 24
	headerHeight      = 40
	handHeight        = 44
	coordBand         = 22
	panelGap          = 10
	panelRadius       = 10
)

var (
	backgroundColor  = color.RGBA{R: 24, G: 26, B: 36, A: 255}
	boardColor       = color.RGBA{R: 226, G: 188, B: 120, A: 255}
	gridColor        = color.RGBA{R: 70, G: 50, B: 30, A: 255}
	lastMoveToFill   = color.NRGBA{R: 255, G: 120, B: 80, A: 120}
	lastMoveFromFill = color.NRGBA{R: 255, G: 228, B: 120, A: 110}
	hudPanelColor    = color.NRGBA{R: 40, G: 44, B: 62, A: 250}
	hudTextPrimary   = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordTextColor   = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	pieceTextColor   = color.NRGBA{R: 20, G: 16, B: 12, A: 255}
	promotedColor    = color.NRGBA{R: 190, G: 20, B: 20, A: 255}
)

// Renderer draws shogi positions as PNG board diagrams.
type Renderer struct {
	squareSize int
}

type Option func(*Renderer)

func WithSquareSize(px int) Option {
	return func(r *Renderer) {
		if px >= 24 {
			r.squareSize = px
		}
	}
}

func New(opts ...Option) *Renderer {
	r := &Renderer{squareSize: defaultSquareSize}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type layout struct {
	sq     int
	width  int
	height int
	header image.Rectangle
	goteH  image.Rectangle
	board  image.Rectangle
	senteH image.Rectangle
}

func (r *Renderer) layout() layout {
	sq := r.squareSize
	boardPx := sq * 9
	l := layout{sq: sq}
	l.width = outerMargin*2 + boardPx + coordBand
	y := outerMargin
	l.header = image.Rect(outerMargin, y, outerMargin+boardPx, y+headerHeight)
	y += headerHeight + panelGap
	l.goteH = image.Rect(outerMargin, y, outerMargin+boardPx, y+handHeight)
	y += handHeight + panelGap + coordBand
	l.board = image.Rect(outerMargin, y, outerMargin+boardPx, y+boardPx)
	y += boardPx + panelGap
	l.senteH = image.Rect(outerMargin, y, outerMargin+boardPx, y+handHeight)
	l.height = y + handHeight + outerMargin
	return l
}

func (l layout) squareRect(sq shogi.Square) image.Rectangle {
	col := 9 - sq.File()
	row := sq.Rank() - 1
	x := l.board.Min.X + col*l.sq
	y := l.board.Min.Y + row*l.sq
	return image.Rect(x, y, x+l.sq, y+l.sq)
}

// Render draws pos and returns the PNG bytes and the image dimensions.
func (r *Renderer) Render(ctx context.Context, pos *shogi.Position) ([]byte, int, int, error) {
	if pos == nil {
		return nil, 0, 0, fmt.Errorf("position is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, 0, err
	}

	l := r.layout()
	img := image.NewRGBA(image.Rect(0, 0, l.width, l.height))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	caption, err := face(false, 18)
	if err != nil {
		return nil, 0, 0, err
	}
	drawer := &font.Drawer{Dst: img, Face: caption}

	drawRoundedPanel(img, l.header, panelRadius, hudPanelColor)
	drawCenteredString(drawer, l.header, headerText(pos), hudTextPrimary)
	drawRoundedPanel(img, l.goteH, panelRadius, hudPanelColor)
	drawCenteredString(drawer, l.goteH, handText(pos, shogi.Gote), hudTextPrimary)
	drawRoundedPanel(img, l.senteH, panelRadius, hudPanelColor)
	drawCenteredString(drawer, l.senteH, handText(pos, shogi.Sente), hudTextPrimary)

	draw.Draw(img, l.board, image.NewUniform(boardColor), image.Point{}, draw.Src)
	drawLastMove(img, l, pos)
	drawGrid(img, l)
	if err := drawPieces(img, l, pos); err != nil {
		return nil, 0, 0, err
	}
	drawCoordinates(drawer, l)

	if err := ctx.Err(); err != nil {
		return nil, 0, 0, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, 0, 0, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), l.width, l.height, nil
}

func headerText(pos *shogi.Position) string {
	side := "Sente"
	if pos.SideToMove() == shogi.Gote {
		side = "Gote"
	}
	last, ok := pos.LastMove()
	if !ok {
		return side + " to move"
	}
	return fmt.Sprintf("%d. %s   %s to move", pos.Ply()-1, last, side)
}

// handText lists pieces in hand in SFEN order, e.g. "Gote: R 2P".
func handText(pos *shogi.Position, c shogi.Color) string {
	name := "Sente"
	if c == shogi.Gote {
		name = "Gote"
	}
	var parts []string
	for _, k := range shogi.HandKinds {
		n := pos.Hand(c, k)
		if n == 0 {
			continue
		}
		s := string(k.Letter())
		if n > 1 {
			s = strconv.Itoa(n) + s
		}
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return name + ": -"
	}
	return name + ": " + strings.Join(parts, " ")
}

func drawLastMove(img *image.RGBA, l layout, pos *shogi.Position) {
	last, ok := pos.LastMove()
	if !ok {
		return
	}
	if !last.IsDrop() {
		draw.Draw(img, l.squareRect(last.From), image.NewUniform(lastMoveFromFill), image.Point{}, draw.Over)
	}
	draw.Draw(img, l.squareRect(last.To), image.NewUniform(lastMoveToFill), image.Point{}, draw.Over)
}

func drawGrid(img *image.RGBA, l layout) {
	line := image.NewUniform(gridColor)
	for i := 0; i <= 9; i++ {
		x := l.board.Min.X + i*l.sq
		draw.Draw(img, image.Rect(x-1, l.board.Min.Y, x+1, l.board.Max.Y), line, image.Point{}, draw.Src)
		y := l.board.Min.Y + i*l.sq
		draw.Draw(img, image.Rect(l.board.Min.X, y-1, l.board.Max.X, y+1), line, image.Point{}, draw.Src)
	}
	for _, gx := range []int{3, 6} {
		for _, gy := range []int{3, 6} {
			drawDisc(img, image.Pt(l.board.Min.X+gx*l.sq, l.board.Min.Y+gy*l.sq), 4, gridColor)
		}
	}
}

func drawPieces(img *image.RGBA, l layout, pos *shogi.Position) error {
	inset := l.sq / 12
	size := l.sq - inset*2
	label, err := face(true, float64(l.sq)*0.42)
	if err != nil {
		return err
	}
	drawer := &font.Drawer{Dst: img, Face: label}
	for sq := shogi.Square(0); sq < 81; sq++ {
		pc := pos.PieceAt(sq)
		if pc.IsEmpty() {
			continue
		}
		koma, err := komaImage(pc.Color, size)
		if err != nil {
			return err
		}
		rect := l.squareRect(sq).Inset(inset)
		draw.Draw(img, rect, koma, image.Point{}, draw.Over)

		clr := pieceTextColor
		if pc.Kind.IsPromoted() {
			clr = promotedColor
		}
		text := rect
		// Keep the label in the wide part of the outline.
		if pc.Color == shogi.Gote {
			text.Max.Y -= size / 8
		} else {
			text.Min.Y += size / 8
		}
		drawCenteredString(drawer, text, pieceLabel(pc.Kind), clr)
	}
	return nil
}

// drawCoordinates labels files 9..1 above the board and ranks a..i on its
// right, as in USI square names.
func drawCoordinates(drawer *font.Drawer, l layout) {
	for file := 9; file >= 1; file-- {
		col := 9 - file
		x := l.board.Min.X + col*l.sq
		rect := image.Rect(x, l.board.Min.Y-coordBand, x+l.sq, l.board.Min.Y)
		drawCenteredString(drawer, rect, strconv.Itoa(file), coordTextColor)
	}
	for rank := 1; rank <= 9; rank++ {
		y := l.board.Min.Y + (rank-1)*l.sq
		rect := image.Rect(l.board.Max.X, y, l.board.Max.X+coordBand, y+l.sq)
		drawCenteredString(drawer, rect, string(rune('a'+rank-1)), coordTextColor)
	}
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if drawer == nil || text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}
