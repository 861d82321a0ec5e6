// Package ensemble manages the reference ensembles depthd scores against.
//
// load.go reads curves from CSV, YAML or JSON files and builds mbd indexes.
//
// store.go is the thread-safe registry of built indexes keyed by ensemble ID.
// Pinned entries (loaded from configured files) never expire; entries
// uploaded through the API are evicted by Run once they are older than the
// TTL. Every Put bumps a store-wide version so caches keyed on it never serve
// depths computed against a replaced index.
//
// watch.go rebuilds pinned entries when their files change.
//
// repository.go persists uploaded ensembles in SQLite or PostgreSQL so they
// survive a restart.
package ensemble
