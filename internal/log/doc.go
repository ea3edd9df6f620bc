// Package log provides secure logging for linkcrawl, built on top of the
// standard slog package.
//
// The crawler logs every URL it fetches. Crawled pages regularly link to
// URLs that carry credentials, such as password reset links with a token
// in the query string or ftp-style user:password@host links. Requests may
// also carry user-supplied Cookie and Authorization headers from the
// config file. The SecureHandler keeps those values out of log output.
//
// # Security Features
//
// The SecureHandler sanitizes:
//   - attributes whose key names a secret (cookie, authorization, token ...)
//   - string values that look like credentials (bearer tokens, JWTs)
//   - URL passwords and secret query parameters inside string values
//
// Sanitization applies in verbose mode too.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Debug("fetch",
//	    "url", "https://example.com/reset?token=abc123", // token=***REDACTED***
//	)
package log
