package services

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/url"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const avatarSize = 256

// DefaultAvatarURL is the profile image assigned at signup, served by the
// avatar handler.
func DefaultAvatarURL(seed string) string {
	return "/avatars/" + url.PathEscape(strings.ToLower(seed)) + ".png"
}

var avatarPalette = []color.RGBA{
	{0x4C, 0x6E, 0xF5, 0xFF},
	{0x12, 0xB8, 0x86, 0xFF},
	{0xF0, 0x8C, 0x00, 0xFF},
	{0xE6, 0x4C, 0x80, 0xFF},
	{0x7A, 0x5C, 0xDB, 0xFF},
	{0x1A, 0x9E, 0xBF, 0xFF},
	{0xD9, 0x48, 0x0F, 0xFF},
	{0x2F, 0x9E, 0x44, 0xFF},
}

var (
	avatarFontOnce  sync.Once
	avatarFont      *opentype.Font
	avatarFontError error
)

// RenderAvatarPNG renders the default profile image for a user: the
// first letter of the seed on a background color derived from the seed.
// The same seed always produces the same image.
func RenderAvatarPNG(seed string) ([]byte, error) {
	sum := sha256.Sum256([]byte(strings.ToLower(seed)))
	bg := avatarPalette[int(sum[0])%len(avatarPalette)]

	img := image.NewRGBA(image.Rect(0, 0, avatarSize, avatarSize))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	face, err := newAvatarFontFace(140)
	if err != nil {
		return nil, err
	}
	defer func() { _ = face.Close() }()

	initial := avatarInitial(seed)
	drawCenteredGlyph(img, face, initial, color.RGBA{0xFF, 0xFF, 0xFF, 0xFF})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode avatar png: %w", err)
	}
	return buf.Bytes(), nil
}

func avatarInitial(seed string) string {
	for _, r := range seed {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return string(unicode.ToUpper(r))
		}
	}
	return "?"
}

func newAvatarFontFace(size float64) (*opentype.Face, error) {
	avatarFontOnce.Do(func() {
		avatarFont, avatarFontError = opentype.Parse(goregular.TTF)
	})
	if avatarFontError != nil {
		return nil, fmt.Errorf("parse avatar font: %w", avatarFontError)
	}
	face, err := opentype.NewFace(avatarFont, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("load avatar font face: %w", err)
	}
	otFace, ok := face.(*opentype.Face)
	if !ok {
		return nil, fmt.Errorf("load avatar font face: unexpected type")
	}
	return otFace, nil
}

func drawCenteredGlyph(img draw.Image, face font.Face, text string, clr color.Color) {
	metrics := face.Metrics()
	width := font.MeasureString(face, text).Ceil()
	x := (avatarSize - width) / 2
	y := (avatarSize+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2 - 1

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(clr),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
