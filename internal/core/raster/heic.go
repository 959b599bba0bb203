package raster

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// convertHEIC converts in to a PNG inside dir using one of
// heif-convert | magick | sips. The caller owns dir.
func convertHEIC(ctx context.Context, r Runner, logger *slog.Logger, converter, in, dir string) (string, error) {
	out := filepath.Join(dir, "page-1.png")

	var errb []byte
	var err error
	switch converter {
	case "heif-convert":
		_, errb, err = r.Run(ctx, "heif-convert", logger, in, out)
	case "magick":
		_, errb, err = r.Run(ctx, "magick", logger, in, out)
	case "sips":
		_, errb, err = r.Run(ctx, "sips", logger, "-s", "format", "png", in, "--out", out)
	default:
		return "", fmt.Errorf("HEIC not supported: set raster.heic_converter to one of: heif-convert | magick | sips")
	}
	if err != nil {
		return "", fmt.Errorf("%s convert failed: %w: %s", converter, err, truncate(string(errb), 512))
	}

	if _, statErr := os.Stat(out); statErr != nil {
		return "", fmt.Errorf("HEIC conversion produced no output: %w", statErr)
	}
	return out, nil
}
