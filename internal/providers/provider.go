package providers

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
)

// Kind classifies an address.
type Kind int

const (
	Invalid Kind = iota
	Collection
	Unit
)

func (k Kind) String() string {
	switch k {
	case Collection:
		return "series"
	case Unit:
		return "chapter"
	default:
		return "invalid"
	}
}

// Page is the raw markup fetched from Address.
type Page struct {
	Address string
	Body    []byte
}

func (p *Page) Document() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
}

// Site knows the address layout and navigation markup of one source site.
type Site interface {
	Validate(address string) error
	Classify(address string) Kind
	FirstUnitOf(collection *Page) (string, error)
	NextUnitID(unit *Page) (string, bool)
	UnitAddressFor(id string) string
}
