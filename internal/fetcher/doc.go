// Package fetcher implements the resource download core: conditional
// requests keyed on the local file's mod time, bounded first attempts with a
// single unconditional retry, and temp-file promotion so an interrupted
// transfer never corrupts a previously good copy. Archive-aware callers get
// the same semantics plus a force-redownload path when extraction reveals a
// corrupt body. The installer layer depends on this package to materialize
// every manifest entry without duplicating retry or freshness logic.
package fetcher
