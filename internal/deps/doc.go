// Package deps resolves the build dependencies a model descriptor needs.
//
// Dependencies are Go modules listed in the bundle's go.mod. Each one is
// fetched as a module zip from a package repository, stored under the cache
// directory and extracted once per process:
//
//   - fetcher.go: Fetcher interface and NewFetcher (scheme dispatch).
//   - fetch_dir.go, fetch_proxy.go, fetch_s3.go: repository transports.
//   - cache.go: process-wide resolution cache with single-flight fetches.
//   - resolver.go: transitive walk, extraction and binary discovery.
//   - platform.go: platform tag preference for prebuilt plugin binaries.
//   - requirements.go: go.mod parsing.
//   - errors.go: FetchWarning.
package deps
