// Package delta implements silo's binary patch format: a copy/insert
// encoding of the difference between two versions of the same package
// archive, flate-compressed as a whole. No bsdiff-equivalent library
// appears anywhere in the example corpus this project was grounded on, so
// the codec here is hand-rolled over stdlib compress/flate (see DESIGN.md).
package delta
