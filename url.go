package sga

import (
	"strings"

	"github.com/MAK-Relic-Tool/SGA-V2/internal/binformat"
)

// Scheme names one of the protocol prefixes a host integration can
// address an archive by.
type Scheme string

const (
	SchemeV2  Scheme = "sga-v2"
	SchemeDOW Scheme = "sga-dow"
	SchemeIC  Scheme = "sga-ic"
)

// SchemeRegistry maps a URL scheme to the variant hint it carries.
// An explicit registry object, not a package-level global (Design
// Note 9.4), so callers can extend or restrict which prefixes they
// accept without touching package state shared across the whole
// program.
type SchemeRegistry map[Scheme]binformat.GameFormat

// DefaultSchemeRegistry recognizes the three prefixes §6.4 defines.
// "sga-v2" carries no variant hint (FormatUnknown): its disambiguation
// still falls back to DetectGameFormat's file-record-size inference.
func DefaultSchemeRegistry() SchemeRegistry {
	return SchemeRegistry{
		SchemeV2:  binformat.FormatUnknown,
		SchemeDOW: binformat.FormatDOW,
		SchemeIC:  binformat.FormatIC,
	}
}

// Resolve splits url into its bare path and, if its prefix matches a
// registered scheme, the variant hint that prefix carries. ok is false
// if url carries no recognized "scheme://" prefix.
func (r SchemeRegistry) Resolve(url string) (path string, hint binformat.GameFormat, ok bool) {
	for scheme, format := range r {
		prefix := string(scheme) + "://"
		if strings.HasPrefix(url, prefix) {
			return url[len(prefix):], format, true
		}
	}
	return url, binformat.FormatUnknown, false
}
