// Package authwire implements the wire schema exchanged with the external
// authorization engine.
//
// Messages are encoded in the protobuf wire format directly via
// protowire, keyed by field number so that unknown fields added by either
// side are skipped rather than rejected.
package authwire
