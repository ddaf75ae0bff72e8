// Package extract implements the shared metadata extraction tiers adapters
// compose into their cascade: embedded JSON-LD, platform script state, and
// rendered meta-tag scraping.
//
// Each tier returns (nil, nil) when the page simply does not expose that kind
// of data; errors are reserved for malformed input the caller may want to log
// before cascading to the next tier.
package extract
