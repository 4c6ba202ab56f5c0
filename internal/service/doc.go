// Package service implements the business operations on top of a
// store.Manager: template and product management, the execution timer, the
// shop and the ledger views.
//
// Every mutating operation is one Manager.Update call, so each runs as a
// single read-modify-write of the whole document. Failures a user can act on
// are returned as *Error values; see the Err kinds in errors.go.
package service
