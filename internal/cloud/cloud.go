// Package cloud renders word-cloud images and publishes them to an image
// host, returning a public URL.
package cloud

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/fogleman/gg"
	"github.com/psykhi/wordclouds"

	"github.com/muhbot/muhbot/internal/analysis"
)

// ArtifactStore renders pixel data from a text corpus and publishes it.
// An empty title leaves the image untitled.
type ArtifactStore interface {
	Render(corpus []string, stopwords map[string]bool, title string) ([]byte, error)
	Publish(image []byte) (string, error)
}

// Generator is the production ArtifactStore: wordcloud rendering plus
// imgur upload.
type Generator struct {
	FontFile string
	MaskFile string
	Uploader *Imgur
}

// maxCloudWords bounds how many distinct words feed the layout; beyond
// this the image is unreadable anyway.
const maxCloudWords = 200

const cloudSize = 1024

// Render lays out the most frequent words of corpus into a PNG,
// optionally captioned with title.
func (g *Generator) Render(corpus []string, stopwords map[string]bool, title string) ([]byte, error) {
	top := analysis.TopWords(corpus, stopwords, maxCloudWords)
	if len(top) == 0 {
		return nil, fmt.Errorf("no words to render")
	}
	counts := make(map[string]int, len(top))
	for _, wc := range top {
		counts[wc.Word] = wc.Count
	}

	opts := []wordclouds.Option{
		wordclouds.FontFile(g.FontFile),
		wordclouds.Height(cloudSize),
		wordclouds.Width(cloudSize),
		wordclouds.FontMaxSize(120),
		wordclouds.FontMinSize(12),
		wordclouds.BackgroundColor(color.White),
		wordclouds.Colors([]color.Color{
			color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
			color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
			color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
			color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
		}),
	}
	if g.MaskFile != "" {
		boxes := wordclouds.Mask(g.MaskFile, cloudSize, cloudSize,
			color.RGBA{R: 255, G: 255, B: 255, A: 255})
		opts = append(opts, wordclouds.MaskBoxes(boxes))
	}

	var img image.Image = wordclouds.NewWordcloud(counts, opts...).Draw()
	if title != "" {
		img = g.caption(img, title)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode cloud image: %w", err)
	}
	return buf.Bytes(), nil
}

const titleFontSize = 36

// caption draws title centered along the top edge. If the font cannot be
// loaded the image is returned untitled rather than failing the render.
func (g *Generator) caption(img image.Image, title string) image.Image {
	dc := gg.NewContextForImage(img)
	if err := dc.LoadFontFace(g.FontFile, titleFontSize); err != nil {
		return img
	}
	dc.SetColor(color.Black)
	dc.DrawStringAnchored(title, cloudSize/2, titleFontSize, 0.5, 0.5)
	return dc.Image()
}

// Publish uploads the image and returns its public URL.
func (g *Generator) Publish(image []byte) (string, error) {
	if g.Uploader == nil {
		return "", fmt.Errorf("no image host configured")
	}
	return g.Uploader.Upload(image)
}
