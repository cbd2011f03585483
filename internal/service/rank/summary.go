package rank

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	_ "image/jpeg"
	"image/png"
	"sync"
	"time"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	fontassets "github.com/thkleonnobingu-create/rankboard-bot/internal/assets/fonts"
	"github.com/thkleonnobingu-create/rankboard-bot/internal/board"
	"github.com/thkleonnobingu-create/rankboard-bot/internal/obslog"
)

//go:embed assets/emblem.svg
var emblemFiles embed.FS

// SummaryRenderer produces the composite leaderboard image for a channel.
type SummaryRenderer interface {
	RenderPNG(ctx context.Context, players []*board.Player) ([]byte, error)
}

const (
	canvasWidth  = 1100
	canvasHeight = 750
	tileSize     = 150
	tilesPerRow  = 5
	maxTiles     = 10
	emblemSize   = 500
	emblemAlpha  = 38 // roughly 15% opacity
)

type summaryRenderer struct {
	http *fasthttp.Client
}

// NewSummaryRenderer builds the default renderer. Avatars are fetched over
// HTTP; a tile whose avatar cannot be fetched keeps its frame and caption.
func NewSummaryRenderer() SummaryRenderer {
	return &summaryRenderer{
		http: &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
	}
}

func (r *summaryRenderer) RenderPNG(ctx context.Context, players []*board.Player) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, canvasWidth, canvasHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, imagedraw.Src)

	if err := drawEmblem(img); err != nil {
		return nil, err
	}
	if err := drawTitle(img); err != nil {
		return nil, err
	}

	captionFace, err := fontassets.CaptionFace()
	if err != nil {
		return nil, err
	}
	captionDrawer := &font.Drawer{Dst: img, Face: captionFace, Src: image.NewUniform(color.White)}

	if len(players) > maxTiles {
		players = players[:maxTiles]
	}
	for i, p := range players {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		row := i / tilesPerRow
		col := i % tilesPerRow
		x := 80 + col*200
		y := 150 + row*280

		drawFrame(img, x, y)

		if avatar := r.fetchAvatar(ctx, p.AvatarURL); avatar != nil {
			imagedraw.Draw(img, image.Rect(x, y, x+tileSize, y+tileSize), avatar, image.Point{}, imagedraw.Over)
		}

		captionDrawer.Dot = fixed.P(x+30, y+160+captionFace.Metrics().Ascent.Ceil())
		captionDrawer.DrawString(fmt.Sprintf("RANK %s", p.Rank))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// drawFrame paints the white border surrounding one avatar tile.
func drawFrame(img *image.RGBA, x, y int) {
	const pad, width = 5, 3
	outer := image.Rect(x-pad, y-pad, x+tileSize+pad, y+tileSize+pad)
	white := image.NewUniform(color.White)
	imagedraw.Draw(img, image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, outer.Min.Y+width), white, image.Point{}, imagedraw.Src)
	imagedraw.Draw(img, image.Rect(outer.Min.X, outer.Max.Y-width, outer.Max.X, outer.Max.Y), white, image.Point{}, imagedraw.Src)
	imagedraw.Draw(img, image.Rect(outer.Min.X, outer.Min.Y, outer.Min.X+width, outer.Max.Y), white, image.Point{}, imagedraw.Src)
	imagedraw.Draw(img, image.Rect(outer.Max.X-width, outer.Min.Y, outer.Max.X, outer.Max.Y), white, image.Point{}, imagedraw.Src)
}

func drawTitle(img *image.RGBA) error {
	face, err := fontassets.TitleFace()
	if err != nil {
		return err
	}
	drawer := &font.Drawer{Dst: img, Face: face, Src: image.NewUniform(color.White)}
	drawer.Dot = fixed.P(canvasWidth/2-250, 40+face.Metrics().Ascent.Ceil())
	drawer.DrawString("TOP PLAYER SUMMARY")
	return nil
}

var (
	emblemOnce sync.Once
	emblemImg  *image.RGBA
	emblemErr  error
)

// drawEmblem rasterizes the embedded emblem once and composites it faintly
// behind the grid.
func drawEmblem(dst *image.RGBA) error {
	emblemOnce.Do(func() {
		data, err := emblemFiles.ReadFile("assets/emblem.svg")
		if err != nil {
			emblemErr = fmt.Errorf("read emblem asset: %w", err)
			return
		}
		icon, err := oksvg.ReadIconStream(bytes.NewReader(sanitizeSVG(data)))
		if err != nil {
			emblemErr = fmt.Errorf("parse emblem svg: %w", err)
			return
		}
		icon.SetTarget(0, 0, emblemSize, emblemSize)
		out := image.NewRGBA(image.Rect(0, 0, emblemSize, emblemSize))
		scanner := rasterx.NewScannerGV(emblemSize, emblemSize, out, out.Bounds())
		raster := rasterx.NewDasher(emblemSize, emblemSize, scanner)
		icon.Draw(raster, 1.0)
		emblemImg = out
	})
	if emblemErr != nil {
		return emblemErr
	}
	pos := image.Pt(canvasWidth/2-emblemSize/2, canvasHeight/2-220)
	mask := image.NewUniform(color.Alpha{A: emblemAlpha})
	imagedraw.DrawMask(dst, image.Rectangle{Min: pos, Max: pos.Add(image.Pt(emblemSize, emblemSize))},
		emblemImg, image.Point{}, mask, image.Point{}, imagedraw.Over)
	return nil
}

func sanitizeSVG(svg []byte) []byte {
	fixedSVG := bytes.ReplaceAll(svg, []byte("fill:000000"), []byte("fill:#000000"))
	fixedSVG = bytes.ReplaceAll(fixedSVG, []byte("fill: #"), []byte("fill:#"))
	fixedSVG = bytes.ReplaceAll(fixedSVG, []byte("stroke: #"), []byte("stroke:#"))
	fixedSVG = bytes.ReplaceAll(fixedSVG, []byte("stop-color: #"), []byte("stop-color:#"))
	return fixedSVG
}

// fetchAvatar downloads and scales a headshot. Any failure returns nil so the
// caller can skip the avatar without losing the tile.
func (r *summaryRenderer) fetchAvatar(ctx context.Context, avatarURL string) image.Image {
	if avatarURL == "" {
		return nil
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(avatarURL)

	deadline := time.Now().Add(10 * time.Second)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := r.http.DoDeadline(req, resp, deadline); err != nil {
		obslog.L().Warn("avatar fetch failed", zap.String("url", avatarURL), zap.Error(err))
		return nil
	}
	if status := resp.StatusCode(); status < 200 || status >= 300 {
		obslog.L().Warn("avatar fetch failed", zap.String("url", avatarURL), zap.Int("status", status))
		return nil
	}

	src, _, err := image.Decode(bytes.NewReader(resp.Body()))
	if err != nil {
		obslog.L().Warn("avatar decode failed", zap.String("url", avatarURL), zap.Error(err))
		return nil
	}
	if b := src.Bounds(); b.Dx() == tileSize && b.Dy() == tileSize {
		return src
	}
	scaled := image.NewRGBA(image.Rect(0, 0, tileSize, tileSize))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Over, nil)
	return scaled
}
