// Package services defines the shared error taxonomy for external
// collaborators (s3cmd, sox, the diarization API) and helpers for wrapping
// failures with stage context.
//
// Item-level failures are tagged with ErrExternalTool or ErrTransient and
// never halt a pipeline run; ErrConfiguration and ErrInvariant indicate the
// process should stop.
package services
