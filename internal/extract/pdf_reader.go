// Package extract turns raw invoice files into structured document data
// using page rendering plus a vision-capable chat model.
package extract

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// PDFConverter renders invoice files into JPEG page images. PDF pages go
// through mupdf; JPEG and PNG inputs are re-encoded directly.
type PDFConverter struct {
	logger *zap.Logger
}

// NewPDFConverter creates a new page converter
func NewPDFConverter(logger *zap.Logger) *PDFConverter {
	return &PDFConverter{logger: logger}
}

// PageImages renders each page of the file as a JPEG image.
func (c *PDFConverter) PageImages(path string) ([][]byte, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return c.renderPDF(path)
	case ".jpg", ".jpeg", ".png":
		img, err := c.decodeImageFile(path, ext)
		if err != nil {
			return nil, err
		}
		data, err := encodeJPEG(img)
		if err != nil {
			return nil, err
		}
		return [][]byte{data}, nil
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
}

func (c *PDFConverter) renderPDF(path string) ([][]byte, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	c.logger.Debug("Rendering PDF", zap.String("path", path), zap.Int("pages", pageCount))

	var images [][]byte
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		img, err := doc.Image(pageNum)
		if err != nil {
			c.logger.Warn("Failed to render page",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}

		data, err := encodeJPEG(img)
		if err != nil {
			c.logger.Warn("Failed to encode page",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}
		images = append(images, data)
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("no pages rendered from %s", path)
	}
	return images, nil
}

func (c *PDFConverter) decodeImageFile(path, ext string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	var img image.Image
	switch ext {
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(file)
	case ".png":
		img, err = png.Decode(file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
