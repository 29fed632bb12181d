// Package feed connects the progress store and the lifecycle bus to a remote
// socket.io event stream.
//
// The dispatch side (Feed) only knows the Source interface, so it can be
// driven by a live socket.io connection (Dial) or by anything else that
// delivers named events with decoded JSON payloads.
package feed
