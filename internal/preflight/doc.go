// Package preflight provides readiness checks for the local directories and
// the remote store that clustersync depends on.
//
// These checks run in two contexts:
//   - The synchronizer calls ForStage before dispatching a stage. If any
//     check fails, the stage is not started.
//   - The CLI "clustersync status" command uses RunAll to display overall
//     health.
package preflight
