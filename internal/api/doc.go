// Package api exposes the business operations over HTTP and consumes them
// back.
//
// Client is the operation set shared by the in-process *service.Service and
// the HTTP client, so the CLI can drive either a local data directory or a
// running "rb serve" instance:
//
//	var c api.Client = svc                      // local
//	var c api.Client = api.NewHTTP(url, opts)   // remote
//
// Server routes the same operations through a chi router. Every JSON
// response uses the envelope {success, data?, error?, code?, message?};
// code carries the service error kind so that HTTP turns a failed response
// back into the matching service error.
package api
