// Package segment describes units of translatable page content and the
// helpers that identify and deduplicate them.
package segment
