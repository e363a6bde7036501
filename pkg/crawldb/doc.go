// Package crawldb keeps a history of crawl runs and the images they saved.
//
// SQLite (the default, stored in the XDG data directory) and PostgreSQL are
// supported. Queries are written with ? placeholders and rebound for
// PostgreSQL. The store implements crawler.Recorder.
package crawldb
