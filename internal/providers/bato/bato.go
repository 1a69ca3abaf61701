// Package bato implements providers.Site for bato.to. Series pages list
// chapters newest first and every chapter page links to the next one.
package bato

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/batocbz/internal/errs"
	"github.com/brogergvhs/batocbz/internal/providers"
)

const DefaultBaseURL = "https://bato.to"

const (
	seriesSegment  = "/series/"
	chapterSegment = "/chapter/"

	chapterLinkSelector = `div[class="main"] a[class*="chapt"]`
	nextLinkSelector    = `div[class*="nav-next"] a`
)

type Site struct {
	base  *url.URL
	hosts []string
}

var _ providers.Site = (*Site)(nil)

// New builds a Site rooted at baseURL. Without explicit hosts only the
// base URL's host (and its subdomains) is accepted.
func New(baseURL string, hosts ...string) (*Site, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse site url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("site url %q must be absolute", baseURL)
	}

	s := &Site{base: u}
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			s.hosts = append(s.hosts, h)
		}
	}
	if len(s.hosts) == 0 {
		s.hosts = []string{strings.ToLower(u.Hostname())}
	}

	return s, nil
}

func (s *Site) Validate(address string) error {
	u, err := url.Parse(strings.TrimSpace(address))
	if err != nil {
		return errs.New(errs.KindValidation, address, err)
	}

	host := strings.ToLower(u.Hostname())
	for _, h := range s.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return nil
		}
	}

	return errs.New(errs.KindValidation, address,
		fmt.Errorf("address does not belong to %s", strings.Join(s.hosts, ", ")))
}

func (s *Site) Classify(address string) providers.Kind {
	u, err := url.Parse(strings.TrimSpace(address))
	if err != nil {
		return providers.Invalid
	}

	p := u.Path
	switch {
	case strings.Contains(p, seriesSegment):
		return providers.Collection
	case strings.Contains(p, chapterSegment):
		return providers.Unit
	default:
		return providers.Invalid
	}
}

// FirstUnitOf returns the address of the chronologically first chapter,
// which is the last chapter link on the series page.
func (s *Site) FirstUnitOf(page *providers.Page) (string, error) {
	doc, err := page.Document()
	if err != nil {
		return "", errs.New(errs.KindNavigation, page.Address, err)
	}

	links := doc.Find(chapterLinkSelector).FilterFunction(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		return ok && strings.TrimSpace(href) != ""
	})
	if links.Length() == 0 {
		return "", errs.New(errs.KindNavigation, page.Address, errors.New("no chapter links found on series page"))
	}

	href, _ := links.Last().Attr("href")
	id := lastSegment(resolve(page.Address, href))
	if id == "" {
		return "", errs.New(errs.KindNavigation, page.Address, fmt.Errorf("chapter link %q has no id", href))
	}

	return s.UnitAddressFor(id), nil
}

// NextUnitID reports the id of the chapter after unit. It reports false
// when there is no next link or the link points back to the series.
func (s *Site) NextUnitID(page *providers.Page) (string, bool) {
	doc, err := page.Document()
	if err != nil {
		return "", false
	}

	href, ok := doc.Find(nextLinkSelector).First().Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return "", false
	}

	target := resolve(page.Address, href)
	if s.Classify(target) == providers.Collection {
		return "", false
	}

	id := lastSegment(target)

	return id, id != ""
}

func (s *Site) UnitAddressFor(id string) string {
	return s.base.String() + chapterSegment + id
}

func resolve(base, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return ref.String()
	}

	b, err := url.Parse(base)
	if err != nil {
		return href
	}

	return b.ResolveReference(ref).String()
}

func lastSegment(address string) string {
	p := address
	if u, err := url.Parse(address); err == nil {
		p = u.Path
	}

	parts := strings.Split(strings.TrimRight(p, "/"), "/")

	return parts[len(parts)-1]
}
