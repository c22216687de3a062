// Package transport exposes framed connections through two capability
// sets, Blocking and NonBlocking, over a plain TCP byte stream or a TLS
// session whose handshake has completed.
//
// Both variants put identical bytes on the wire; only the byte stream under
// the frames differs. Dial, Listen, and the TLS builders are convenience
// plumbing around the variants and are not required to use them.
//
// WebSocket carries the same frames over a binary WebSocket and offers
// only the Blocking set.
package transport
