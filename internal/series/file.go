package series

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bimotal/motordata/internal/model"
)

// WriteCSV exports a series as the three-column chart-data file:
// numeric label, value, originating property name.
func WriteCSV(path string, points []model.SeriesPoint) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("series: mkdir %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("series: create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Numeric_Label", "Value", "Original_Property"}); err != nil {
		f.Close()
		return fmt.Errorf("series: write header: %w", err)
	}
	for _, p := range points {
		record := []string{
			strconv.Itoa(p.Index),
			strconv.FormatFloat(p.Value, 'f', -1, 64),
			p.Property,
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return fmt.Errorf("series: write point %d: %w", p.Index, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("series: flush: %w", err)
	}
	return f.Close()
}

// FileName returns the conventional per-category chart-data file name.
func FileName(cat model.Category) string {
	return string(cat) + "_numeric_values.csv"
}
