// Package artifact writes failure screenshots next to a run.
package artifact

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nfnt/resize"
)

// Options configures screenshot output
type Options struct {
	MaxWidth uint // downscale wider captures to this width, 0 keeps 800
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeName turns an arbitrary label into a file name stem
func SanitizeName(name string) string {
	name = strings.Trim(unsafeChars.ReplaceAllString(name, "_"), "_.")
	if name == "" {
		return "screenshot"
	}
	return name
}

// SaveScreenshot decodes a PNG capture, shrinks it to opts.MaxWidth keeping
// the aspect ratio, and writes it to dir/name.png. It returns the path.
func SaveScreenshot(data []byte, dir, name string, opts Options) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode screenshot: %w", err)
	}

	outputWidth := opts.MaxWidth
	if outputWidth == 0 {
		outputWidth = 800
	}
	if bounds := img.Bounds(); uint(bounds.Dx()) > outputWidth {
		// Calculate height maintaining aspect ratio
		aspectRatio := float64(bounds.Dy()) / float64(bounds.Dx())
		outputHeight := uint(float64(outputWidth) * aspectRatio)
		img = resize.Resize(outputWidth, outputHeight, img, resize.Lanczos3)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	path := filepath.Join(dir, SanitizeName(name)+".png")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}
