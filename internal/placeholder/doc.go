// Package placeholder converts HTML fragments into placeholder-annotated
// plain text for machine translation and back. Inline markup is replaced by
// bracketed markers ([HV1], [HE1]...[/HE1], [HA1]...[/HA1]) and the original
// tags are kept in an ordered list of replacements so the fragment can be
// rebuilt after translation.
package placeholder
