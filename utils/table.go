package utils

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Padding fills the cells of the aggregated matrices past a task's last frame
const Padding = -1

// WriteListing writes the preamble lines followed by one `trj,index` row per center, in selection order
func WriteListing(w io.Writer, preamble []string, listings []Listing) error {
	for _, line := range preamble {
		if _, err := fmt.Fprintf(w, "# %s\n", line); err != nil {
			return err
		}
	}
	if len(listings) == 0 {
		return nil
	}

	records := [][]string{{"trj", "index"}}
	for _, l := range listings {
		records = append(records, []string{filepath.Base(l.File), strconv.Itoa(l.Offset)})
	}

	df := loadStrings(records)
	return df.WriteCSV(w, dataframe.WriteHeader(false))
}

// WriteIntMatrix writes one row per task: the task file followed by its values
func WriteIntMatrix(w io.Writer, files []string, rows [][]int) error {
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, len(row))
		for j, v := range row {
			cells[i][j] = strconv.Itoa(v)
		}
	}
	return writeMatrix(w, files, cells)
}

// WriteFloatMatrix writes one row per task: the task file followed by its values
func WriteFloatMatrix(w io.Writer, files []string, rows [][]float64) error {
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, len(row))
		for j, v := range row {
			cells[i][j] = strconv.FormatFloat(v, 'f', 6, 64)
		}
	}
	return writeMatrix(w, files, cells)
}

// AppendRows writes the rows without header, for appends to a shared file
func AppendRows(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	records := append([][]string{header}, rows...)
	df := loadStrings(records)
	return df.WriteCSV(w, dataframe.WriteHeader(false))
}

func writeMatrix(w io.Writer, files []string, cells [][]string) error {
	if len(cells) != len(files) {
		return fmt.Errorf("matrix has %d rows for %d files", len(cells), len(files))
	}
	if len(cells) == 0 {
		return nil
	}

	width := len(cells[0])
	header := make([]string, width+1)
	header[0] = "trj"
	for j := 0; j < width; j++ {
		header[j+1] = strconv.Itoa(j)
	}

	records := [][]string{header}
	for i, row := range cells {
		if len(row) != width {
			return fmt.Errorf("row %d has %d columns, expected %d", i, len(row), width)
		}
		records = append(records, append([]string{filepath.Base(files[i])}, row...))
	}

	df := loadStrings(records)
	return df.WriteCSV(w)
}

// cells are written back exactly as formatted
func loadStrings(records [][]string) dataframe.DataFrame {
	return dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
}
