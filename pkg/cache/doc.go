// Package cache provides optional caching of static page bodies.
//
// Backends are selected by configuration: none (default), memory, redis or
// memcache. Cache failures never fail a fetch; the caller logs them and
// falls through to the network.
package cache
