// Package crawler implements the scrape, dedup and download pipeline.
//
// A crawl walks listing pages 1..N under the listing root. For every profile
// link it renders the page for tags, fetches it statically for the image
// link, skips images already seen in this run and downloads the rest under a
// dense zero-based index. Per-item failures are logged and skipped; a listing
// page that cannot be fetched aborts the crawl.
//
//	c, err := crawler.New(crawler.Options{...})
//	res, err := c.Crawl(ctx, crawler.Request{BaseURL: "https://www.minecraftskins.com/", Pages: 3})
//	fmt.Println(res.Summary())
//
// The tag map is written and the rendering session released on both the
// normal and the fatal path.
package crawler
