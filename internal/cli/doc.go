// Package cli implements the mbd command line tool.
//
//	mbd depth    score query curves against an ensemble file
//	mbd inspect  summarise an ensemble file
//	mbd remote   talk to a running depthd over gRPC
//	mbd token    mint a bearer token for jwt auth
package cli
