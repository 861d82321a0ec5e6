// Package depthv1 defines the banddepth.v1.DepthService gRPC API.
//
// Messages are plain Go structs carried by a JSON codec registered under the
// "json" content-subtype. The client stub selects that codec on every call;
// servers pick it up from the request's content-type automatically once
// this package is imported.
//
// JSON cannot represent ±Inf, so curves holding infinities can be scored
// through the mbd package directly but not sent over this API.
package depthv1
