// Package preflight provides readiness checks for the services and
// directories shotreel depends on.
//
// The CLI runs RunAll before a pipeline run so a missing API key or an
// unwritable data directory is reported before any code is generated, and
// the "shotreel status --check" command prints the same results.
package preflight
