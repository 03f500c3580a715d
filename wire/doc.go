// Package wire carries tagged values across the engine boundary.
//
// Two representations are provided. Frames are the compact binary form
// exchanged with compiled models through linear memory:
//
//	frame   := version:u8 kind:u8 body
//	body    := value                      (kind 0)
//	         | message:string             (kind 1, engine error)
//	value   := tag:u8 payload
//
// Payloads per tag:
//
//	Null           (none)
//	Bool           u8, 0 or 1
//	Long           sLEB128
//	Double         f64 little endian
//	String         uLEB128 length, UTF-8 bytes
//	Tensor         dtype:u8 format:u8 rank:uLEB128 dims:sLEB128* nbytes:uLEB128 bytes
//	Tuple, List    uLEB128 count, value*
//	BoolList       uLEB128 count, u8*
//	LongList       uLEB128 count, sLEB128*
//	DoubleList     uLEB128 count, f64*
//	TensorList     uLEB128 count, tensor payload*
//	DictStringKey  uLEB128 count, (string value)*
//	DictLongKey    uLEB128 count, (sLEB128 value)*
//
// Tensor bytes are always dense in the declared memory format. Decoding
// enforces the limits declared in this package and copies every buffer, so
// a decoded value never aliases the input slice.
//
// The map form (ToMap, FromMap) is the {"typeCode", "data"} shape exchanged
// with a host platform over a method channel.
package wire
