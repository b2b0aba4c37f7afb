// Package diarization submits speaker-diarization jobs to the pyannote.ai
// API and collects the results over a webhook.
//
// The API never receives audio directly. Each job points at a URL on a
// locally hosted endpoint that serves the processed recording, and names a
// second URL on the same endpoint as the webhook for the finished
// diarization. The Submitter ties the pieces together: it starts the
// endpoint server, submits one job per pending recording, then blocks until
// every outstanding job has posted its results back.
package diarization
