package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrCaptureFailed is the only error Capture returns; the cause is logged.
var ErrCaptureFailed = errors.New("capture failed")

const timestampLayout = "20060102_150405"

// Renderer loads url in a fresh browser and returns a full-page PNG.
type Renderer interface {
	Render(ctx context.Context, url string) ([]byte, error)
}

type Config struct {
	Dir     string
	Timeout time.Duration
}

type Service struct {
	renderer Renderer
	cfg      Config
	log      *slog.Logger
	now      func() time.Time
}

func New(r Renderer, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Service{
		renderer: r,
		cfg:      cfg,
		log:      logger.With("component", "snapshot"),
		now:      time.Now,
	}
}

// Capture renders url and writes the image under the output directory. The
// caller owns the returned file and must remove it.
func (s *Service) Capture(ctx context.Context, url, code string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	started := s.now()
	img, err := s.renderer.Render(ctx, url)
	if err != nil {
		s.log.Error("render page", "url", url, "code", code, "error", err.Error())
		return "", ErrCaptureFailed
	}

	path, err := s.write(img, code, started)
	if err != nil {
		s.log.Error("write screenshot", "code", code, "error", err.Error())
		return "", ErrCaptureFailed
	}

	s.log.Info("screenshot captured", "code", code, "path", path, "took", s.now().Sub(started).String())
	return path, nil
}

func (s *Service) write(img []byte, code string, at time.Time) (string, error) {
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create screenshot dir")
	}

	path := filepath.Join(s.cfg.Dir, FileName(code, at))
	if err := os.WriteFile(path, img, 0o644); err != nil {
		_ = os.Remove(path)
		return "", errors.Wrap(err, "write screenshot")
	}
	return path, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName is <code>_<YYYYMMDD_HHMMSS>_<8 hex>.png. The random suffix keeps
// same-second captures of one code apart.
func FileName(code string, at time.Time) string {
	safe := unsafeChars.ReplaceAllString(code, "_")
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("%s_%s_%s.png", safe, at.Format(timestampLayout), suffix)
}
