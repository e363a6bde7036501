// Package ratelimit paces item-level requests against the source site.
//
// The crawl is strictly sequential and pauses a fixed, configurable delay
// between requests. Pacer implements that policy on top of
// golang.org/x/time/rate with a limit of one event per delay, and keeps the
// same delay after the end of each request reported through Done:
//
//	pacer := ratelimit.NewPacer(time.Second, 1)
//	for _, url := range profiles {
//	    if err := pacer.Wait(ctx); err != nil {
//	        return err
//	    }
//	    // fetch url
//	    pacer.Done()
//	}
package ratelimit
