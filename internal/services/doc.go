// Package services holds shared collaborator plumbing: sentinel errors with
// wrapping helpers, failure-to-status classification, and context annotations
// used by structured logging.
//
// The resolver and state-machine packages report absence through explicit
// "no match" results; errors from this package only cross boundaries where a
// collaborator genuinely failed.
package services
