// Package service contains the business rules of DevPulse.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces ownership, orchestrates
//	Repository (data layer)  → reads/writes the store
//
// Services never see HTTP and never see SQL. They take repository
// interfaces (not *sqlite.DB or *postgres.DB), the identity.Provider
// capability and a cache.PageCache, so every rule here is tested with
// plain function calls against in-memory fakes.
//
// THE DEPENDENCY CHAIN:
//
//	server.New creates:  Store → Services → Handlers
//	At runtime:          Handler calls Service calls Repository
//
// Every mutation that changes what /u/<username> renders ends by
// invalidating that page in the cache. Invalidation is best effort: a
// failure is logged and the mutation still succeeds.
package service
