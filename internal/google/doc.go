// Package google provides OAuth2 configuration and token handling for Gmail access.
//
// The OAuth client (client_secret.json) and the user's token (token.json) are
// plain JSON documents; callers read them from the environment or the archive
// bucket and hand the bytes to this package. Tokens written by the Go oauth2
// package and by Google's Python client library are both understood.
package google
