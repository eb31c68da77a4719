// Package store declares the collaborators the listing service reads from:
// metadata item stores, the AU catalog, the metadata update job manager and
// the poll manager. Implementations live in other packages; this package
// must not import database drivers or concrete clients.
package store
