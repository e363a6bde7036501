// Package analysis computes per-image statistics over downloaded skins and
// renders the derived images: a brightness histogram and a front-facing
// preview assembled from fixed sprite sheet regions.
package analysis
