// Package client implements the digestry network client.
//
// # Overview
//
// The package provides:
//  1. A Client that speaks the datagram protocol to a single server: one
//     request and one response per operation, each over its own UDP socket.
//  2. Account resolution: the client accounts file is consulted once at
//     construction, and when it holds an entry for the configured server
//     every request is signed with that account's key. Otherwise requests
//     go out anonymous.
//  3. Typed results for the query operations (CheckResult, InfoResult).
//
// # Error Handling
//
// Non-OK response codes are mapped to the shared sentinel errors, so callers
// can match conditions with errors.Is: common.ErrBadRequest,
// common.ErrorUnauthorized, common.ErrNotPermitted, common.ErrNotImplemented
// and common.ErrVersionNotSupported.
//
// Concurrency & Contexts
//
// A Client is safe for concurrent use; every operation opens its own
// connection. All operations accept context.Context and honor cancellation
// and deadlines.
package client
