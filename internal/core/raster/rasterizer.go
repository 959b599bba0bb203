package raster

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/proposal-extractor/constants"
	"github.com/joseph-ayodele/proposal-extractor/internal/common"
)

// PageImage is one rendered page. Page numbers start at 1.
type PageImage struct {
	Page     int
	MIMEType string
	Data     []byte
}

// DataURI returns the page as data:<mime>;base64,<payload>.
func (p PageImage) DataURI() string {
	return "data:" + p.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}

// Rasterizer turns a document into ordered page images. Zero pages is not
// an error at this layer.
type Rasterizer interface {
	Rasterize(ctx context.Context, doc []byte, maxPages int) ([]PageImage, error)
}

// Config holds external tool settings for PDFRasterizer.
type Config struct {
	Pdftoppm      string // path or name, default "pdftoppm"
	HeicConverter string // heif-convert | magick | sips
	DPI           int
	ScratchDir    string // parent of per-call scratch dirs, "" = os.TempDir()
}

// PDFRasterizer renders PDFs with pdftoppm and passes raster images through.
type PDFRasterizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// NewPDFRasterizer creates a rasterizer. A nil runner uses ExecRunner.
func NewPDFRasterizer(cfg Config, runner Runner, logger *slog.Logger) *PDFRasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = constants.DefaultDPI
	}
	return &PDFRasterizer{cfg: cfg, runner: runner, logger: logger}
}

// Rasterize renders at most maxPages pages (maxPages <= 0 means the default
// of 8). Scratch files live in a fresh directory that is removed on return.
func (r *PDFRasterizer) Rasterize(ctx context.Context, doc []byte, maxPages int) ([]PageImage, error) {
	if maxPages <= 0 {
		maxPages = constants.DefaultMaxPages
	}
	if len(doc) == 0 {
		return nil, nil
	}

	start := time.Now()
	format := DetectFormat(doc)
	logger := r.logger.With("req_id", common.RequestIDFromContext(ctx), "format", string(format))

	switch format {
	case FormatPNG, FormatJPEG:
		logger.Debug("raster.passthrough", "bytes", len(doc))
		return []PageImage{{Page: 1, MIMEType: format.MIMEType(), Data: doc}}, nil
	case FormatPDF, FormatHEIC:
	default:
		return nil, fmt.Errorf("%w: unsupported document format", common.ErrInvalidInput)
	}

	dir, err := os.MkdirTemp(r.cfg.ScratchDir, "pe-raster-"+uuid.NewString()+"-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("raster.cleanup.error", "dir", dir, "error", err)
		}
	}()

	var paths []string
	if format == FormatPDF {
		paths, err = r.renderPDF(ctx, logger, doc, dir, maxPages)
	} else {
		paths, err = r.renderHEIC(ctx, logger, doc, dir)
	}
	if err != nil {
		return nil, err
	}

	pages := make([]PageImage, 0, len(paths))
	for i, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read page %d: %w", i+1, err)
		}
		pages = append(pages, PageImage{Page: i + 1, MIMEType: "image/png", Data: b})
	}

	logger.Info("raster.ok", "pages", len(pages), "elapsed_ms", time.Since(start).Milliseconds())
	return pages, nil
}

func (r *PDFRasterizer) renderPDF(ctx context.Context, logger *slog.Logger, doc []byte, dir string, maxPages int) ([]string, error) {
	in := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(in, doc, 0o600); err != nil {
		return nil, fmt.Errorf("write scratch input: %w", err)
	}

	prefix := filepath.Join(dir, "page")
	// pdftoppm -r 150 -png -l 8 <in.pdf> <dir/page>
	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, logger,
		"-r", strconv.Itoa(r.cfg.DPI), "-png", "-l", strconv.Itoa(maxPages), in, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, truncate(string(errb), 512))
	}

	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	sortByOrdinal(matches)
	if len(matches) > maxPages {
		matches = matches[:maxPages]
	}
	return matches, nil
}

func (r *PDFRasterizer) renderHEIC(ctx context.Context, logger *slog.Logger, doc []byte, dir string) ([]string, error) {
	in := filepath.Join(dir, "input.heic")
	if err := os.WriteFile(in, doc, 0o600); err != nil {
		return nil, fmt.Errorf("write scratch input: %w", err)
	}
	out, err := convertHEIC(ctx, r.runner, logger, r.cfg.HeicConverter, in, dir)
	if err != nil {
		return nil, err
	}
	return []string{out}, nil
}

// sortByOrdinal orders prefix-N.png paths by N. pdftoppm zero-pads N to the
// width of the document's page count, so plain string order is not enough
// across documents.
func sortByOrdinal(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		return pageOrdinal(paths[i]) < pageOrdinal(paths[j])
	})
}

func pageOrdinal(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	idx := strings.LastIndexByte(base, '-')
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(base[idx+1:])
	if err != nil {
		return 0
	}
	return n
}
