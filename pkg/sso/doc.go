// Package sso manages the cross-request SSO token lifecycle against the
// remote directory service: auto-login from an inbound token, token
// issuance after a successful password login, and best-effort logout.
//
// Nothing in this package raises errors to its callers. SSO is an
// enhancement layered on top of a successful local login, never a
// prerequisite for one, so every remote failure here is logged and
// swallowed.
package sso
