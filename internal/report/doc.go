// Package report computes annotation-coverage reports over the UEM
// directory and cross-checks the catalog against the artifact directories.
package report
