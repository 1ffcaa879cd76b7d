// Package objectstore implements silo's content-addressed blob store (CAS).
//
// A blob is addressed by the SHA-256 of its bytes and lives at
// root/HH/HHHH...HASH, where HH is the first two hex characters of the
// hash. The store has no index of its own — the Catalog's FileContent table
// is the authoritative record of which hashes exist; objectstore only knows
// how to read and write bytes given a hash it's handed.
package objectstore
