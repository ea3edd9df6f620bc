package crawler

import "errors"

var (
	// ErrEmptySeed is returned when a crawl is started without a seed URL.
	ErrEmptySeed = errors.New("seed URL is empty")

	// ErrUnexpectedStatus is returned when a page responds with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrInvalidProxyAddress is returned when the SOCKS5 proxy address is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address: must be host:port")

	// ErrTooManyRedirects is returned when a page redirects more than maxRedirects times.
	ErrTooManyRedirects = errors.New("too many redirects")
)
