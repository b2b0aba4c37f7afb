// Package runner orchestrates one processing run end to end: it takes the
// single-run lock, checks the environment, loads the work list, drives the
// fetch/process pipeline, and reports the outcome.
package runner
