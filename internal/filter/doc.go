// Package filter implements the inline request-authorization filter.
//
// One Filter instance is created per HTTP request. The host adapter invokes
// OnRequestHeaders when the request headers are available; the filter builds
// the authorization payload from the inbound headers, dispatches it to the
// policy engine through the host, and pauses the request. When the host
// delivers the completion via OnAuthorizationReply the filter either resumes
// the request with an identity annotation or terminates it with an HTTP
// error. Exactly one terminal action occurs per request.
package filter
