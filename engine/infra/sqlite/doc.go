// Package sqlite provides the modernc.org/sqlite backed store for crawl watermarks and
// the accepted message records.
package sqlite
