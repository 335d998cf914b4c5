// Package model defines the value types shared across the replay engine:
// the wire-level update, its total-order position in the stream, and the
// durable checkpoint row written by bulk builds.
//
// Conventions:
//   - Prices and sizes: scaled integers, no floating point in the core.
//   - Timestamps: int64 microseconds since Unix epoch, local to the
//     exchange's source feed.
//   - Side: Bid or Ask, zero-extended from the input column's uint8/int8
//     physical type.
package model
