// Package book holds the two order-book storage strategies the replay
// engine applies updates into: Sparse, a map-backed book sized for however
// many price levels are actually touched, and Dense, a fixed-range array
// book sized up front for symbols with a known tick size and price bound.
//
// Both implement Book, so replay.Run is storage-agnostic.
package book
