// Package dag provides a small, concurrency-safe directed acyclic graph keyed
// by string IDs. The pipeline coordinator uses it to describe which phases
// feed which, to find every phase downstream of a change, and to walk phases
// in dependency order.
package dag
