// Package rpc contains the gRPC services spoken between accrue Coordinators
// and Workers, and the compressed payload codec used by the execution
// service. Service descriptors are written by hand; messages are protobuf
// well-known types, so no generated code is required.
package rpc
