// Package alphavantage implements a listing source backed by the Alpha
// Vantage LISTING_STATUS endpoint.
//
// # Request
//
// Each fetch issues a single GET:
//
//	{base_url}/query?function=LISTING_STATUS&apikey={key}
//
// The response body is a CSV document with a header row followed by one
// row per listed security. Decoding is left to a [driven.ListingDecoder].
//
// # Rate Limiting
//
// The free tier allows a handful of requests per minute. Requests are
// throttled proactively with a token bucket. A 429 response, or a 200
// response whose body is the JSON throttle notice Alpha Vantage sends in
// place of data, is reported as a [RateLimitError].
//
// # Authentication
//
// The API key travels in the query string. Deployments behind a gateway can
// also set a bearer token, sent via an oauth2 static token source.
package alphavantage
