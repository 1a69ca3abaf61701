// Package fetcher retrieves page markup from the source site. Every call
// is a single request; a failed page aborts the chapter instead of being
// retried here.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/brogergvhs/batocbz/internal/errs"
	"github.com/brogergvhs/batocbz/internal/providers"
	"github.com/brogergvhs/batocbz/internal/ui"
)

type Fetcher struct {
	client   *http.Client
	validate func(address string) error
	log      *ui.Logger
}

const maxRedirects = 10

// New returns a Fetcher. validate runs before any request is made and
// again on every redirect target; a nil validate accepts everything.
func New(c *http.Client, validate func(string) error, log *ui.Logger) *Fetcher {
	if c == nil {
		c = http.DefaultClient
	}

	if validate != nil {
		cc := *c
		cc.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects")
			}
			return checkAddress(validate, req.URL.String())
		}
		c = &cc
	}

	return &Fetcher{client: c, validate: validate, log: log}
}

func checkAddress(validate func(string) error, address string) error {
	err := validate(address)
	if err != nil && errs.KindOf(err) == errs.KindUnknown {
		err = errs.New(errs.KindValidation, address, err)
	}
	return err
}

func (f *Fetcher) Fetch(ctx context.Context, address string) (*providers.Page, error) {
	if f.validate != nil {
		if err := checkAddress(f.validate, address); err != nil {
			return nil, err
		}
	}

	f.log.Infof("Downloading webpage %s\n", address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return nil, errs.New(errs.KindFetch, address, err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		var verr *errs.Error
		if errors.As(err, &verr) && verr.Kind == errs.KindValidation {
			return nil, verr
		}
		return nil, errs.New(errs.KindFetch, address, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			f.log.Debugf("Warning: failed to close response body for %s: %v\n", address, cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errs.New(errs.KindFetch, address, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.New(errs.KindFetch, address, fmt.Errorf("read body: %w", err))
	}

	return &providers.Page{Address: address, Body: body}, nil
}
