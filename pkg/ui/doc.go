// Package ui prints colored status lines, per-item crawl progress and desktop
// notifications. Colors are dropped when stdout is not a terminal or when
// disabled explicitly.
package ui
