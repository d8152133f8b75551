// Package sanitizer normalizes free-text input before validation and storage.
//
// All functions are idempotent and never fail: invalid input collapses to an
// empty string or an empty slice.
//
// Normalization includes:
//   - Strings: collapse whitespace, trim leading/trailing spaces
//   - Emails: trim and lowercase
//   - Tags: trimmed, deduplicated case-insensitively, first spelling wins
//   - Markup: HTML stripped from user text (bluemonday strict policy)
package sanitizer
