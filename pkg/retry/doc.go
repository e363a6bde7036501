// Package retry provides backoff and retry logic for transient failures.
//
// Only image downloads are retried. Listing pages are fetched once and a
// failure aborts the crawl.
//
//	cfg := retry.FromSettings(ctx, appCfg.Retry, log)
//	data, err := retry.DoWithResult(func() ([]byte, error) {
//	    return downloader.Download(ctx, imageURL)
//	}, cfg)
//
// DefaultRetryIf retries network, rate limit and server errors and gives up
// immediately on context cancellation or other typed errors.
package retry
