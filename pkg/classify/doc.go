// Package classify folds the crawl's tag map into a tag frequency table and a
// single class per image.
//
// Each image's popular tag is its most frequent tag overall. Images whose
// popular tag is not among the top N tags are bucketed as "other", images
// without tags as "no_tags". Regular classes get targets 0..k-1 in the
// configured Order, followed by no_tags and other.
package classify
