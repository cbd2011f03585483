package fontassets

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var (
	parseOnce sync.Once
	parsed    *opentype.Font
	parseErr  error

	titleOnce sync.Once
	titleFace font.Face
	titleErr  error

	captionOnce sync.Once
	captionFace font.Face
	captionErr  error
)

func loadFont() (*opentype.Font, error) {
	parseOnce.Do(func() {
		parsed, parseErr = opentype.Parse(goregular.TTF)
		if parseErr != nil {
			parseErr = fmt.Errorf("parse embedded font: %w", parseErr)
		}
	})
	return parsed, parseErr
}

// TitleFace returns the large face used for image headings.
func TitleFace() (font.Face, error) {
	titleOnce.Do(func() {
		titleFace, titleErr = newFace(45)
	})
	return titleFace, titleErr
}

// CaptionFace returns the face used for small labels under tiles.
func CaptionFace() (font.Face, error) {
	captionOnce.Do(func() {
		captionFace, captionErr = newFace(28)
	})
	return captionFace, captionErr
}

func newFace(size float64) (font.Face, error) {
	f, err := loadFont()
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("build font face: %w", err)
	}
	return face, nil
}
