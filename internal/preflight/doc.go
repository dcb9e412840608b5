// Package preflight provides readiness checks for the filesystem paths and
// remote hosts that a signdata build depends on.
//
// These checks run in two contexts:
//   - The "signdata doctor" command runs RunAll and prints every result.
//   - The build command runs RunAll before resolving assets. If any check
//     fails, the build stops before spending hours on a doomed download.
//
// Network checks are skipped when offline is requested.
package preflight
