// Package preflight provides readiness checks for the binaries and
// filesystem paths partmix depends on.
//
// The mix command runs RunAll before building an engine pool so a batch
// never starts against an unwritable scratch or output directory. The doctor
// command shows every check, including CheckSystemDeps.
package preflight
