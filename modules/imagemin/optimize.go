package imagemin

import (
	"bytes"
	"fmt"
	"image/gif"
	"image/jpeg"
	"image/png"
	"path"
	"strings"
)

// Format is an image encoding handled by Optimize.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	GIF  Format = "gif"
)

// FormatOf picks the format from a file extension.
func FormatOf(name string) (Format, bool) {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return PNG, true
	case ".jpg", ".jpeg":
		return JPEG, true
	case ".gif":
		return GIF, true
	}
	return "", false
}

// pngLevel maps an optimization level (0-7) onto the encoder settings.
func pngLevel(level int) png.CompressionLevel {
	switch {
	case level == 0:
		return png.NoCompression
	case level <= 2:
		return png.BestSpeed
	case level <= 5:
		return png.DefaultCompression
	}
	return png.BestCompression
}

// Optimize re-encodes data and returns whichever of the original and the
// re-encoded bytes is smaller.
func Optimize(data []byte, f Format, level, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch f {
	case PNG:
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding png: %w", err)
		}
		enc := png.Encoder{CompressionLevel: pngLevel(level)}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encoding png: %w", err)
		}
	case JPEG:
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding jpeg: %w", err)
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encoding jpeg: %w", err)
		}
	case GIF:
		g, err := gif.DecodeAll(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding gif: %w", err)
		}
		if err := gif.EncodeAll(&buf, g); err != nil {
			return nil, fmt.Errorf("encoding gif: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported image format %q", f)
	}

	if buf.Len() >= len(data) {
		return data, nil
	}
	return buf.Bytes(), nil
}
