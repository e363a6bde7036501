// Package checkpoint provides saving and resuming of crawl progress.
//
// A checkpoint is written after every completed listing page. It holds the
// next image index, the seen image URLs and the tag map built so far, so a
// resumed crawl continues numbering where the interrupted one stopped.
//
// Checkpoints live in the XDG data directory, one file per listing root:
//
//	$XDG_DATA_HOME/skinscraper/checkpoints/<hash>.checkpoint.json
//
// Files are written atomically and carry a format version.
package checkpoint
