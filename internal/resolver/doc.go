// Package resolver computes the transitive set of packages needed to
// satisfy an install request and the reverse-impact of removing one.
//
// It consults a Catalog (the installed set) and a RepositoryPackage index
// (the available set) but owns neither; callers wire in the lookups it
// needs through the Oracle interface so resolver stays free of any direct
// database dependency.
package resolver
