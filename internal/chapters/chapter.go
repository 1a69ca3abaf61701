package chapters

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/batocbz/internal/errs"
	"github.com/brogergvhs/batocbz/internal/providers"
)

var (
	// The inline block looks like `const images = ["//x/1.jpg", ...];`.
	reImages = regexp.MustCompile(`images = [\w\s{}\[\]":/\-.,]*`)

	reUnsafe = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

const titleSeparator = " - "

// Manifest is the ordered image list and directory-safe title of one
// chapter.
type Manifest struct {
	Images   []string
	Title    string
	RawTitle string
}

func Extract(page *providers.Page) (*Manifest, error) {
	images, err := extractImages(string(page.Body))
	if err != nil {
		return nil, errs.New(errs.KindExtraction, page.Address, err)
	}

	doc, err := page.Document()
	if err != nil {
		return nil, errs.New(errs.KindExtraction, page.Address, err)
	}

	raw := extractTitle(doc)
	if raw == "" {
		return nil, errs.New(errs.KindExtraction, page.Address, errors.New("could not find chapter title"))
	}

	return &Manifest{
		Images:   images,
		Title:    Sanitize(raw),
		RawTitle: raw,
	}, nil
}

func extractImages(body string) ([]string, error) {
	m := reImages.FindString(body)
	if m == "" {
		return nil, errors.New("could not find JSON data for images")
	}

	start := strings.Index(m, "[")
	if start < 0 {
		return nil, errors.New("image data is not a list")
	}

	// Decode only the first value; the match may run into trailing words.
	var images []string
	if err := json.NewDecoder(strings.NewReader(m[start:])).Decode(&images); err != nil {
		return nil, fmt.Errorf("decode image data: %w", err)
	}
	if len(images) == 0 {
		return nil, errors.New("image data is empty")
	}

	return images, nil
}

// extractTitle prefers <title> without its trailing site name and falls
// back to the option marked selected="true" used by older layouts.
func extractTitle(doc *goquery.Document) string {
	t := strings.TrimSpace(doc.Find("title").First().Text())
	if t != "" {
		parts := strings.Split(t, titleSeparator)
		if len(parts) > 1 {
			parts = parts[:len(parts)-1]
		}
		if name := strings.TrimSpace(strings.Join(parts, titleSeparator)); name != "" {
			return name
		}
	}

	return strings.TrimSpace(doc.Find(`[selected="true"]`).First().Text())
}

// Sanitize collapses every run of characters outside [A-Za-z0-9] into a
// single underscore. Leading and trailing underscores are kept.
func Sanitize(s string) string {
	return reUnsafe.ReplaceAllString(s, "_")
}
