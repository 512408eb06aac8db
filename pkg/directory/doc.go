// Package directory talks to the remote directory service that is the
// system of record for users, groups and credentials.
//
// It exposes two layers:
//
//   - Client: a capability-typed REST client for the remote user-management
//     API (credential checks, group lookups, SSO session lifecycle).
//   - Gateway: the authorization gate built on top of the client. Every read
//     on the Gateway fails closed: an unreachable or misconfigured remote
//     yields a denial, never an error, because callers use these answers to
//     gate access.
package directory
