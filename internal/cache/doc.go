// Package cache provides LRU caching for parsed cards.
//
// The cache is capacity-bounded in bytes; the caller supplies each
// entry's cost, typically cardstore.CardSize. When a resource
// controller is attached, every cached byte is also reserved against
// the controller's memory budget, so cache growth competes with
// in-flight imports instead of stacking on top of them.
package cache
