package extract

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"skinscraper/pkg/config"
	errs "skinscraper/pkg/errors"
)

// Selectors holds the CSS selectors used against the skin site
type Selectors struct {
	ListingLink string
	ImageInput  string
	ImageAttr   string
	Tag         string
	Pagination  string
}

// DefaultSelectors returns selectors for www.minecraftskins.com
func DefaultSelectors() Selectors {
	return Selectors{
		ListingLink: "div.skin-img a",
		ImageInput:  "input#image-link-code",
		ImageAttr:   "value",
		Tag:         "div.tags a",
		Pagination:  "div.pagination li",
	}
}

// FromConfig builds selectors from configuration, falling back to defaults for blank entries
func FromConfig(cfg config.SelectorConfig) Selectors {
	s := DefaultSelectors()
	if cfg.ListingLink != "" {
		s.ListingLink = cfg.ListingLink
	}
	if cfg.ImageInput != "" {
		s.ImageInput = cfg.ImageInput
	}
	if cfg.ImageAttr != "" {
		s.ImageAttr = cfg.ImageAttr
	}
	if cfg.Tag != "" {
		s.Tag = cfg.Tag
	}
	if cfg.Pagination != "" {
		s.Pagination = cfg.Pagination
	}
	return s
}

// Parse builds a document from raw HTML
func Parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errs.NewParsingError("html document", err)
	}
	return doc, nil
}

// Links returns the profile links of a listing page in document order, resolved against base.
// Links that are blank or cannot be resolved are dropped.
func (s Selectors) Links(doc *goquery.Document, base string) []string {
	baseURL, baseErr := url.Parse(base)

	var links []string
	doc.Find(s.ListingLink).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		if baseErr != nil {
			links = append(links, href)
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		links = append(links, baseURL.ResolveReference(ref).String())
	})
	return links
}

// Tags returns the trimmed tag labels of a profile page in document order.
// Case and duplicates are preserved.
func (s Selectors) Tags(doc *goquery.Document) []string {
	tags := []string{}
	doc.Find(s.Tag).Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			tags = append(tags, text)
		}
	})
	return tags
}

// ImageURL returns the downloadable image URL from the first image marker element
func (s Selectors) ImageURL(doc *goquery.Document) (string, bool) {
	value, ok := doc.Find(s.ImageInput).First().Attr(s.ImageAttr)
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// PageCount reads the site's page total from the second-to-last pagination entry
func (s Selectors) PageCount(doc *goquery.Document) (int, bool) {
	items := doc.Find(s.Pagination)
	if items.Length() < 2 {
		return 0, false
	}
	text := strings.TrimSpace(items.Eq(items.Length() - 2).Text())
	n, err := strconv.Atoi(text)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
