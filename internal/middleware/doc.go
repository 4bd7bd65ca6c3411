// Package middleware provides HTTP middleware for the authorization
// gateway's listener: request ID propagation, panic recovery, and access
// logging.
package middleware
