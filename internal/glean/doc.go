// Package glean provides the business boundary for Gleaner's vendor invoicing
// anomaly detection. It defines the Engine (pure detection over per-vendor
// history profiles), the Service (run lifecycle, ids, async dispatch), the
// Store interface (persistence), and the domain models.
package glean
