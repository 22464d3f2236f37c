// Package tenant stores per-tenant admission configuration.
//
// The only tunable today is MaxConcurrentStreams, the number of ACTIVE
// streams a tenant may hold at once. Tenants without an explicit entry
// get the default quota; a missing or wiped backing store therefore
// degrades to defaults instead of blocking admission.
package tenant
