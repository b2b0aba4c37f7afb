// Package preflight provides readiness checks for the external binaries and
// filesystem paths a processing run depends on.
//
// These checks run in two contexts:
//   - The run command calls RunAll before touching the work queue. If any
//     check fails, the run aborts instead of failing halfway through a batch.
//   - The CLI "status" command uses the individual check functions to display
//     environment health.
package preflight
