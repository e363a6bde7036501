package sample

import (
	"fmt"
	"html"
	"path"
	"strconv"
	"strings"

	"skinscraper/pkg/fetcher"
)

// perPage is how many profiles each fixture listing page holds
const perPage = 4

// Site builds an in-memory copy of the skin site from the bundled set.
// Listing pages overlap by one profile so the crawl exercises dedup.
// It returns the fixture and the number of listing pages.
func Site(baseURL string) (*fetcher.Fixture, int, error) {
	tags, err := TagMap()
	if err != nil {
		return nil, 0, err
	}

	f := fetcher.NewFixture()
	indices := tags.Indices()

	for _, idx := range indices {
		data, err := files.ReadFile(path.Join(skinsDir, strconv.Itoa(idx)+".png"))
		if err != nil {
			return nil, 0, err
		}
		imageURL := fmt.Sprintf("%stextures/%d.png", baseURL, idx)
		f.AddBytes(imageURL, data)
		f.AddPage(profileURL(baseURL, idx), profilePage(imageURL, tags[idx]))
	}

	var groups [][]int
	for start := 0; start < len(indices); start += perPage - 1 {
		end := min(start+perPage, len(indices))
		groups = append(groups, indices[start:end])
		if end == len(indices) {
			break
		}
	}

	pages := len(groups)
	for i, group := range groups {
		f.AddPage(baseURL+strconv.Itoa(i+1), listingPage(group, pages))
	}
	f.AddPage(baseURL, listingPage(nil, pages))

	return f, pages, nil
}

func profileURL(baseURL string, idx int) string {
	return fmt.Sprintf("%sskin/%d/sample-%d/", baseURL, idx, idx)
}

func listingPage(indices []int, pages int) string {
	var b strings.Builder
	b.WriteString("<html><body>\n")
	for _, idx := range indices {
		fmt.Fprintf(&b, "<div class=\"skin-img\"><a href=\"/skin/%d/sample-%d/\"><img src=\"#\"></a></div>\n", idx, idx)
	}
	b.WriteString("<div class=\"pagination\"><ul>\n<li>&laquo;</li>\n")
	for p := 1; p <= pages; p++ {
		fmt.Fprintf(&b, "<li>%d</li>\n", p)
	}
	b.WriteString("<li>&raquo;</li>\n</ul></div>\n</body></html>")
	return b.String()
}

func profilePage(imageURL string, tags []string) string {
	var b strings.Builder
	b.WriteString("<html><body>\n")
	fmt.Fprintf(&b, "<input id=\"image-link-code\" value=\"%s\">\n", html.EscapeString(imageURL))
	b.WriteString("<div class=\"tags\">\n")
	for _, tag := range tags {
		fmt.Fprintf(&b, "<a href=\"/search/skin/%s/\">%s</a>\n", html.EscapeString(strings.ToLower(tag)), html.EscapeString(tag))
	}
	b.WriteString("</div>\n</body></html>")
	return b.String()
}
