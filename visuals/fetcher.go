package visuals

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"shorts-bot/types"
)

// maxImageBytes caps a single download
const maxImageBytes = 25 * 1024 * 1024

// Soft failure causes reported by Fetch
const (
	CauseTimeout = "timeout"
	CauseStatus  = "status"
	CauseIO      = "io"
	CauseRequest = "request"
	CauseEmpty   = "empty"
)

// Fetcher downloads generated images into the run workspace
type Fetcher struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewFetcher creates a new Fetcher with a per-request timeout
func NewFetcher(timeout time.Duration, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("fetch"),
	}
}

// Fetch streams fileURL into a new temp file under dir and returns its path.
// Every error is a *types.SoftFailure; a partial file is never left behind.
func (f *Fetcher) Fetch(ctx context.Context, fileURL, dir string) (string, error) {
	log := f.logger.With(zap.String("url", truncate(fileURL, 80)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", soft(CauseRequest, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ShortsBot/1.0)")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		cause := CauseRequest
		if isTimeout(err) {
			cause = CauseTimeout
		}
		log.Warn("Image download failed", zap.String("cause", cause), zap.Error(err))
		return "", soft(cause, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("Image download rejected", zap.Int("status", resp.StatusCode))
		return "", soft(CauseStatus, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	out, err := os.CreateTemp(dir, "image_*"+extensionFor(resp.Header.Get("Content-Type")))
	if err != nil {
		return "", soft(CauseIO, err)
	}
	path := out.Name()

	n, copyErr := io.Copy(out, io.LimitReader(resp.Body, maxImageBytes+1))
	closeErr := out.Close()

	switch {
	case copyErr != nil:
		err = soft(CauseIO, copyErr)
		if isTimeout(copyErr) {
			err = soft(CauseTimeout, copyErr)
		}
	case closeErr != nil:
		err = soft(CauseIO, closeErr)
	case n == 0:
		err = soft(CauseEmpty, errors.New("empty body"))
	case n > maxImageBytes:
		err = soft(CauseIO, fmt.Errorf("image larger than %d bytes", maxImageBytes))
	}
	if err != nil {
		_ = os.Remove(path)
		log.Warn("Image download incomplete", zap.Error(err))
		return "", err
	}

	log.Info("Image downloaded", zap.String("path", path), zap.Int64("bytes", n))
	return path, nil
}

func soft(cause string, err error) error {
	return types.NewSoftFailure(types.StageImage, cause, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// extensionFor maps an image content type onto a file extension
func extensionFor(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch ct {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
