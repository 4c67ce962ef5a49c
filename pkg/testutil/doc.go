// Package testutil provides shared test fixtures: isolated environments
// with their own XDG directories, a content server that counts requests,
// and archive builders.
package testutil
