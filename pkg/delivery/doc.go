// Package delivery implements acknowledged, at-least-once delivery of
// inbound satellite datagrams to local listeners.
//
// Every datagram is given a durable dedup id, persisted, and dispatched to
// each listener registered on its channel. A listener acknowledges through
// the AckFunc it was handed; until then the datagram is re-dispatched to it
// every retry interval. The persisted record is deleted only once every
// listener it was dispatched to has acknowledged it. If that delete fails
// the record stays and is delivered again by Flush or by the next listener
// registration on its channel.
//
// Listener registration is reference counted per channel: the first
// listener subscribes the channel at the modem gateway, the last one to
// leave unsubscribes it.
//
// All state is owned by one serialized worker. Listeners are invoked on that
// worker and must not block or call the Manager's synchronous methods
// (RegisterListener, UnregisterListener, Flush, Status) from OnReceived.
package delivery
