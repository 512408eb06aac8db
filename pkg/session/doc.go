// Package session provides the host-local session store the watchdog
// reconciles against remote SSO truth. Two backends: an in-memory
// expirable LRU for single-node deployments and Redis for shared state.
package session
