// Package export writes compliance reports as JSON or CSV.
package export
