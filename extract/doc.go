// Package extract recovers structured objects from unreliable generated
// text. The upstream completion service is not contractually guaranteed to
// emit well-formed JSON, so extraction is attempted in three tiers (whole
// text, fenced code block, first balanced brace span) and callers fall back
// to deterministic text segmentation when no object can be recovered.
//
// Everything in this package is a pure function: no I/O, no errors, no
// panics. Callers treat "no object" as an expected outcome.
package extract
