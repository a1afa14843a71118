// Package background translates cache-miss segments after the page has been
// served. Every segment runs on its own goroutine and writes its result to
// the cache as soon as it completes, so pollers see partial progress. The
// in-flight key of each segment is released on every exit path.
package background
