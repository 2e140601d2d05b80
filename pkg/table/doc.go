// Package table reads tab-separated survey datasets and writes result
// tables. It is deliberately dumb glue: rows come out as header-keyed maps
// with empty cells meaning "missing", and all interpretation (classification,
// outcome parsing) happens in the packages that consume them.
package table
