package downloader

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/brogergvhs/batocbz/internal/errs"
	"github.com/brogergvhs/batocbz/internal/ui"
)

const (
	DefaultAttempts = 5
	DefaultBackoff  = 5 * time.Second
)

// Options controls the per-image retry policy. After failed attempt k the
// downloader waits k*Backoff before trying again.
type Options struct {
	Attempts int
	Backoff  time.Duration
}

// Observer is told about every attempt and every finished locator. n is
// one-based.
type Observer interface {
	Downloading(n, total, attempt int)
	Finished(n, total int, bytes int64, err error)
}

type Skipped struct {
	Index   int
	Locator string
	Err     error
}

type Result struct {
	Files   []string
	Skipped []Skipped
	Bytes   int64
}

type Downloader struct {
	client   *http.Client
	log      *ui.Logger
	attempts int
	backoff  time.Duration
}

func New(c *http.Client, log *ui.Logger, opts Options) *Downloader {
	if c == nil {
		c = http.DefaultClient
	}
	if opts.Attempts < 1 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}

	return &Downloader{
		client:   c,
		log:      log,
		attempts: opts.Attempts,
		backoff:  opts.Backoff,
	}
}

// FileName is the workspace name of the image at index i.
func FileName(i int) string {
	return fmt.Sprintf("%03d.jpg", i)
}

// DownloadImages fetches locators one by one into folder. Image files left
// in folder by an earlier run are removed first. An image that still fails
// after every attempt is skipped and leaves its slot empty; only a folder
// error or a cancelled context stops the loop.
func (d *Downloader) DownloadImages(
	ctx context.Context,
	locators []string,
	folder string,
	referer string,
	obs Observer,
) (*Result, error) {

	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, errs.New(errs.KindDirectory, folder, err)
	}
	if err := clearSlots(folder); err != nil {
		return nil, errs.New(errs.KindDirectory, folder, err)
	}

	total := len(locators)
	res := &Result{Files: make([]string, 0, total)}

	for i, raw := range locators {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		n := i + 1
		u := NormalizeLocator(raw)
		path := filepath.Join(folder, FileName(i))

		written, err := d.downloadWithRetry(ctx, u, path, referer, n, total, obs)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}

			d.log.Errorf("!!! Image at %s was not downloaded: %v !!!\n", u, err)
			if rerr := os.Remove(path); rerr != nil && !os.IsNotExist(rerr) {
				d.log.Warnf("Could not remove %s: %v\n", path, rerr)
			}
			res.Skipped = append(res.Skipped, Skipped{
				Index:   i,
				Locator: u,
				Err:     errs.New(errs.KindImageFetch, u, err),
			})
		} else {
			res.Files = append(res.Files, path)
			res.Bytes += written
		}

		if obs != nil {
			obs.Finished(n, total, written, err)
		}
	}

	return res, nil
}

func (d *Downloader) downloadWithRetry(
	ctx context.Context,
	u string,
	output string,
	referer string,
	n, total int,
	obs Observer,
) (int64, error) {
	var err error
	for attempt := 1; attempt <= d.attempts; attempt++ {
		if obs != nil {
			d.log.Debugf("Downloading file %d/%d (attempt %d)\n", n, total, attempt)
			obs.Downloading(n, total, attempt)
		} else {
			d.log.Infof("Downloading file %d/%d (attempt %d)\n", n, total, attempt)
		}

		var written int64
		written, err = d.download(ctx, u, output, referer)
		if err == nil {
			return written, nil
		}

		if attempt == d.attempts {
			break
		}

		wait := time.Duration(attempt) * d.backoff
		d.log.Warnf("There was a problem downloading %s (%v). Waiting %s and retrying.\n", u, err, wait)

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(wait):
		}
	}

	return 0, fmt.Errorf("failed after %d attempts: %w", d.attempts, err)
}

func (d *Downloader) download(ctx context.Context, u, output, referer string) (int64, error) {
	if u == "" {
		return 0, errEmptyLocator
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return 0, err
	}

	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mt, _, _ := mime.ParseMediaType(ct)
		if !strings.HasPrefix(mt, "image/") && mt != "application/octet-stream" {
			return 0, fmt.Errorf("unexpected MIME: %s", ct)
		}
	}

	f, err := os.Create(output)
	if err != nil {
		return 0, err
	}

	written, err := copyBody(ctx, f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && resp.ContentLength > 0 && written < resp.ContentLength {
		err = fmt.Errorf("short body: %d of %d bytes", written, resp.ContentLength)
	}
	if err != nil {
		_ = os.Remove(output)
		return 0, err
	}

	return written, nil
}

var slotName = regexp.MustCompile(`^\d{3,}\.jpg$`)

// clearSlots removes image files named like FileName from folder. Other
// files are left alone.
func clearSlots(folder string) error {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.IsDir() || !slotName.MatchString(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(folder, e.Name())); err != nil {
			return err
		}
	}

	return nil
}

// NormalizeLocator gives scheme-less locators the https scheme.
func NormalizeLocator(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}

	if u, err := url.Parse(s); err == nil && u.Scheme != "" && u.Host != "" {
		return s
	}

	if strings.HasPrefix(s, "//") {
		return "https:" + s
	}

	return "https://" + strings.TrimLeft(s, "/")
}

var errEmptyLocator = errors.New("empty image locator")
