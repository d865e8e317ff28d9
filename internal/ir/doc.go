// Package ir provides the canonical value model used for content-addressed
// identity of compiled artifacts.
//
// Formula trees, planned queries and pivot requests are encoded as ir Values
// and serialized with MarshalCanonical (RFC 8785 key ordering, NFC strings,
// no floats). Hash combines that encoding with a domain prefix so that equal
// inputs always produce equal fingerprints across processes and releases.
//
// ir imports nothing internal. Every other package may depend on it.
package ir
