// Package api is the client's only door to the course marketplace REST API.
//
// # Overview
//
//  1. Client is the transport-agnostic contract: one method per endpoint
//     (auth, users, courses, cart, purchases, categories).
//  2. RestClient implements it over resty. A cookie jar carries the server
//     session cookie on every request, so no token is ever attached by hand.
//     Each request gets an X-Request-ID and is paced by an optional rate
//     limiter. There is no retry or backoff.
//
// # Error Handling
//
// Responses are mapped to sentinel errors that callers match with errors.Is:
// ErrUnavailable (transport), ErrUnauthorized (401/403), ErrValidation
// (400/422), ErrNotFound (404), ErrUnexpectedStatus (anything else). Use
// errors.As with *StatusError to get the HTTP status and the server's detail.
package api
