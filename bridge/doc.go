// Package bridge exposes loaded models to a host over a method channel.
//
// A host sends MethodCall values and receives a Result for each:
//
//	load    {filePath}          -> moduleId
//	forward {moduleId, inputs}  -> output map
//	destroy {moduleId}          -> nil
//
// Inputs and outputs use the map form of tagged values (see wire.ToMap and
// wire.FromMap): {"typeCode": int, "data": ...}, with tensors carrying
// shape, dtype and memoryFormat. Failures of load are reported with the
// code "loadError", failures of forward with "forwardError". destroy never
// fails, and any other method answers NotImplemented.
//
// Module ids are handles of a resource.Table and are never reused, so a
// host holding a stale id gets an error instead of reaching a newer model.
// Detach destroys every module still loaded.
package bridge
