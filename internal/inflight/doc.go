// Package inflight tracks segments whose translation is in progress so that
// concurrent requests do not dispatch the same work twice.
package inflight
