// Package diag holds side-channel diagnostics for the replay engine: phase
// timing, a one-shot schema printer, and per-run correlation ids. None of
// it feeds back into replay correctness — every diag hook is read-only
// observation, gated on environment variables carried over from the
// original implementation.
package diag
