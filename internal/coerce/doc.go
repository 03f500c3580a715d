// Package coerce classifies dynamically typed host scalars and converts them
// to the 64-bit payloads carried by tagged values.
//
// It accepts the builtin numeric types, named types whose underlying kind is
// numeric, and json.Number (integral text is an integer, anything else is a
// float). Integral floats coerce to integers so that JSON-decoded numbers can
// fill integer lists when the caller asks for one.
//
// Shared by the transcoder and the method-channel map codec.
package coerce
