// Package gateway runs the inline HTTP listener. Each inbound request gets
// its own authorization filter instance; the gateway adapts the request to
// the filter's host contract, holds the request while the authorization
// call is in flight, and either forwards it upstream or writes the filter's
// terminal response.
package gateway
