package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"skinscraper/pkg/analysis"
	"skinscraper/pkg/classify"
)

// WriteFrequencies writes the tag frequency table as tag,count rows
func WriteFrequencies(w io.Writer, table []classify.TagCount) error {
	rows := make([][]string, 0, len(table))
	for _, tc := range table {
		rows = append(rows, []string{tc.Tag, strconv.Itoa(tc.Count)})
	}
	return writeCSV(w, []string{"tag", "count"}, rows)
}

// WriteAssignments writes one index,popular_tag,class,target row per image
func WriteAssignments(w io.Writer, assignments []classify.Assignment) error {
	rows := make([][]string, 0, len(assignments))
	for _, a := range assignments {
		rows = append(rows, []string{
			strconv.Itoa(a.Index),
			a.PopularTag,
			a.Class,
			strconv.Itoa(a.Target),
		})
	}
	return writeCSV(w, []string{"index", "popular_tag", "class", "target"}, rows)
}

// WriteStats writes one index,brightness,variance,hue,pixels row per image
func WriteStats(w io.Writer, stats []analysis.Stats) error {
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			strconv.Itoa(s.Index),
			formatFloat(s.Brightness),
			formatFloat(s.Variance),
			formatFloat(s.Hue),
			strconv.Itoa(s.Pixels),
		})
	}
	return writeCSV(w, []string{"index", "brightness", "variance", "hue", "pixels"}, rows)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// ToFile creates path and hands it to write
func ToFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
