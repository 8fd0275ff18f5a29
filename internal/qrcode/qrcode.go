// Package qrcode renders attendance form links as printable QR images.
package qrcode

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"

	goqrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	// DisplaySize is the QR size shown on the session page.
	DisplaySize = 128
	// DownloadSize is the QR size of the printable download.
	DownloadSize = 512

	padding     = 64
	textSpace   = 128
	captionSize = 32
)

// ErrEmptyURI is returned when there is nothing to encode.
var ErrEmptyURI = errors.New("qr: empty uri")

var (
	fontOnce sync.Once
	fontData *opentype.Font
	fontErr  error
)

func captionFont() (*opentype.Font, error) {
	fontOnce.Do(func() {
		fontData, fontErr = opentype.Parse(goregular.TTF)
	})
	return fontData, fontErr
}

func encode(uri string, size int) (image.Image, error) {
	if uri == "" {
		return nil, ErrEmptyURI
	}
	q, err := goqrcode.New(uri, goqrcode.Low)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	q.DisableBorder = true
	return q.Image(size), nil
}

// Render returns a bare size x size PNG of uri.
func Render(uri string, size int) ([]byte, error) {
	img, err := encode(uri, size)
	if err != nil {
		return nil, err
	}
	return encodePNG(fit(img, size))
}

// Layout is the geometry of a composed image.
type Layout struct {
	Width, Height int
	QRX, QRY      int
	// Baseline is the y coordinate of the caption baseline.
	Baseline int
}

// LayoutFor returns the geometry for a QR of size px: the QR is centred with
// padding on every side and space for the caption below it.
func LayoutFor(size int) Layout {
	w := size + padding*2
	h := size + padding*2 + textSpace
	qrY := (h - size) / 2
	return Layout{
		Width:    w,
		Height:   h,
		QRX:      (w - size) / 2,
		QRY:      qrY,
		Baseline: min(qrY+size+textSpace/2, h-16),
	}
}

// Image is a composed QR ready to download.
type Image struct {
	PNG      []byte
	Layout   Layout
	FileName string
}

// Compose draws the QR of uri on a white canvas with caption centred under it.
func Compose(uri string, size int, caption string) (Image, error) {
	qr, err := encode(uri, size)
	if err != nil {
		return Image{}, err
	}
	l := LayoutFor(size)

	canvas := image.NewRGBA(image.Rect(0, 0, l.Width, l.Height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	target := image.Rect(l.QRX, l.QRY, l.QRX+size, l.QRY+size)
	draw.NearestNeighbor.Scale(canvas, target, qr, qr.Bounds(), draw.Over, nil)

	if caption != "" {
		if err := drawCaption(canvas, caption, l); err != nil {
			return Image{}, err
		}
	}

	raw, err := encodePNG(canvas)
	if err != nil {
		return Image{}, err
	}
	return Image{PNG: raw, Layout: l, FileName: FileName(caption)}, nil
}

func drawCaption(dst draw.Image, caption string, l Layout) error {
	f, err := captionFont()
	if err != nil {
		return fmt.Errorf("qr caption font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    captionSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("qr caption face: %w", err)
	}
	defer face.Close()

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}
	width := d.MeasureString(caption)
	d.Dot = fixed.Point26_6{
		X: fixed.I(l.Width/2) - width/2,
		Y: fixed.I(l.Baseline),
	}
	d.DrawString(caption)
	return nil
}

// fit scales img to size x size when the encoder could not hit the size exactly.
func fit(img image.Image, size int) image.Image {
	if b := img.Bounds(); b.Dx() == size && b.Dy() == size {
		return img
	}
	out := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.NearestNeighbor.Scale(out, out.Bounds(), img, img.Bounds(), draw.Src, nil)
	return out
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("qr png: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL embeds a PNG in a data: URL.
func DataURL(pngBytes []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}

// FileName is the download name for caption: spaces become underscores.
func FileName(caption string) string {
	if caption == "" {
		caption = "qr"
	}
	return strings.ReplaceAll(caption, " ", "_") + ".png"
}
