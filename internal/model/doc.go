// Package model defines shared data types used across the capture pipeline.
//
// Conventions:
//   - Prices: float64 probabilities in (0,1); carried as decimal strings on the wire
//   - Timestamps: int64 milliseconds since Unix epoch (Polymarket convention)
//   - Fill amounts: raw integer base units as reported by the subgraph
package model
