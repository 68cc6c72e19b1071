// Package graft defines the core value types shared across the Graft
// volume store: volume identifiers, log sequence numbers, page offsets,
// page contents, and the store's error taxonomy.
package graft
