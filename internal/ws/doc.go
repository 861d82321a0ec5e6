// Package ws streams depth results to WebSocket clients.
//
// Two events are sent, both as {"event": ..., "data": ...} JSON envelopes:
//
//	ensembles  the list of live ensembles; sent on connect and every interval
//	depth      one scored batch, published as soon as the engine returns it
//
// Hub implements scoring.Sink. Clients whose send buffer fills up are
// disconnected rather than slowing the engine down.
package ws
