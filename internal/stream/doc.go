// Package stream implements the Stream Collector component.
//
// The Stream Collector:
//   - Holds a single long-lived subscription to the market push feed
//   - Classifies each event (book, trade, price change) with a pure function
//   - Persists every classified event at-least-once; storage uniqueness
//     constraints absorb reconnect-induced re-delivery
//   - Models connection life as an explicit state machine with exponential
//     reconnect backoff
//
// Message handling is strictly sequential: one connection, one consumer.
package stream
