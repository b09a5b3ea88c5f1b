// Package common holds helpers shared by several services.
//
// It builds the HTTP client used for feed and artifact requests: proxy from
// the user's settings, a User-Agent carrying the running version and a
// response header timeout, plus status checking via HTTPError.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
