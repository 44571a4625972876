// Package satellite defines the vocabulary shared by every satlink component:
// result codes surfaced to callers, modem and radio states, the attributes of
// an enable request and the inbound datagram type.
//
// The package has no dependencies on the rest of the module so that the
// gateway, arbiter, delivery and service layers can all import it.
package satellite
