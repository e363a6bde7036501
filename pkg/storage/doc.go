// Package storage manages the destination storage area and the tag map.
//
// Images are stored as <index>.png where index is the dense, zero-based
// position assigned by the crawler. Writes go through a temporary file and a
// rename so a partially written image never carries its final name.
//
// Reset swaps the whole area for an empty directory:
//
//	manager := storage.NewManager("data/skins")
//	if err := manager.Reset(); err != nil {
//	    return err
//	}
//	path, err := manager.SaveImage(0, bytes.NewReader(png))
//
// The tag map is a JSON object keyed by the decimal image index:
//
//	{
//	  "0": ["Dragon", "dragon"],
//	  "1": []
//	}
package storage
