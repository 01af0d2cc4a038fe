package geoload

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/ecoplan-lk/siteopt-cli/internal/model"
)

// DemandFromFile loads demand points from a CSV or XLSX file, dispatching
// on the file extension.
func DemandFromFile(path string) ([]model.DemandPoint, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return DemandFromCSV(path)
	case ".xlsx":
		return DemandFromXLSX(path, "")
	default:
		return nil, eris.Errorf("geoload: unsupported demand file %s (want .csv or .xlsx)", path)
	}
}

// DemandFromCSV reads demand points from a CSV file with a header row.
// Recognized columns: name, longitude/lng/lon, latitude/lat,
// waste/weight/quantity.
func DemandFromCSV(path string) ([]model.DemandPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geoload: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "geoload: read %s", path)
	}
	return demandFromRows(records, path)
}

// DemandFromXLSX reads demand points from a spreadsheet. An empty sheet
// name selects the first sheet.
func DemandFromXLSX(path, sheetName string) ([]model.DemandPoint, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geoload: open %s", path)
	}

	var sheet *xlsx.Sheet
	if sheetName != "" {
		s, ok := f.Sheet[sheetName]
		if !ok {
			return nil, eris.Errorf("geoload: sheet %q not found in %s", sheetName, path)
		}
		sheet = s
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.Errorf("geoload: %s has no sheets", path)
		}
		sheet = f.Sheets[0]
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return demandFromRows(rows, path)
}

// columnMap resolves header names to column indices.
type columnMap struct {
	name, lng, lat, weight int
}

func mapColumns(header []string) (columnMap, error) {
	cols := columnMap{name: -1, lng: -1, lat: -1, weight: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name", "zone", "zone name":
			cols.name = i
		case "longitude", "lng", "lon":
			cols.lng = i
		case "latitude", "lat":
			cols.lat = i
		case "waste", "weight", "quantity", "waste quantity":
			cols.weight = i
		}
	}
	if cols.lng < 0 || cols.lat < 0 || cols.weight < 0 {
		return cols, eris.Errorf("geoload: header must include longitude, latitude and waste columns, got %v", header)
	}
	return cols, nil
}

func demandFromRows(rows [][]string, path string) ([]model.DemandPoint, error) {
	if len(rows) == 0 {
		return nil, eris.Errorf("geoload: %s is empty", path)
	}

	cols, err := mapColumns(rows[0])
	if err != nil {
		return nil, err
	}

	demand := make([]model.DemandPoint, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if emptyRow(row) {
			continue
		}

		lng, err := cellFloat(row, cols.lng)
		if err != nil {
			return nil, eris.Wrapf(err, "geoload: row %d longitude", i+2)
		}
		lat, err := cellFloat(row, cols.lat)
		if err != nil {
			return nil, eris.Wrapf(err, "geoload: row %d latitude", i+2)
		}
		weight, err := cellFloat(row, cols.weight)
		if err != nil {
			return nil, eris.Wrapf(err, "geoload: row %d waste quantity", i+2)
		}
		if weight < 0 {
			return nil, eris.Errorf("geoload: row %d has negative waste quantity %g", i+2, weight)
		}

		var name string
		if cols.name >= 0 && cols.name < len(row) {
			name = strings.TrimSpace(row[cols.name])
		}

		demand = append(demand, model.DemandPoint{
			Name:     name,
			Location: model.Point{Lng: lng, Lat: lat},
			Weight:   weight,
		})
	}

	if len(demand) == 0 {
		return nil, eris.Errorf("geoload: %s has no demand rows", path)
	}

	zap.L().Info("demand points loaded", zap.String("path", path), zap.Int("points", len(demand)))
	return demand, nil
}

func emptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cellFloat(row []string, idx int) (float64, error) {
	if idx >= len(row) {
		return 0, eris.New("missing column")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
	if err != nil {
		return 0, eris.Wrapf(err, "parse %q", row[idx])
	}
	return v, nil
}
