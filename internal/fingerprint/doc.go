// Package fingerprint derives the comparable identity of a work item's
// execution requirements.
//
// Two requirement sets with equal fingerprints are interchangeable for
// worker reuse. Classpath entries are identified by content, not path, so
// touching a file changes the fingerprint even when the path list is
// unchanged. VM argument order is significant; classpath order is not.
package fingerprint
