// Package daemon implements the warm background server and its client.
//
// A cold CLI invocation would rebuild the catalog, session store, and
// structure cache on every call. Instead the first call spawns a
// detached daemon that keeps that state resident and serves requests
// over a unix socket; later calls attach in microseconds. The daemon
// exits on its own after a configurable idle period, so there is
// nothing to manage: a stale socket just means the next call spawns a
// fresh daemon.
//
// The wire protocol is one JSON request and one JSON response per call,
// both delimited by JSON value boundaries. Errors travel with a stable
// kind tag so clients can branch without parsing messages.
package daemon
