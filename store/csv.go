package store

import (
	"encoding/csv"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/seismon/vorotomo/geom"
	"github.com/seismon/vorotomo/tomo"
)

// CSVSource reads the input catalogs from CSV files and the
// starting models from gob files. It implements
// tomo.DataSource.
//
// Every CSV file carries a header row; columns are matched
// by name, so column order does not matter.
type CSVSource struct {
	EventsPath   string
	ArrivalsPath string
	StationsPath string
	PwavePath    string
	SwavePath    string
}

// EventData reads the event and arrival catalogs.
func (s CSVSource) EventData() ([]tomo.Event, []tomo.Arrival, error) {
	var events []tomo.Event
	err := readCSV(s.EventsPath, []string{"event_id", "latitude", "longitude", "depth", "time"},
		func(row *csvRow) error {
			events = append(events, tomo.Event{
				ID:        row.Int64("event_id"),
				Latitude:  row.Float("latitude"),
				Longitude: row.Float("longitude"),
				Depth:     row.Float("depth"),
				Time:      row.Float("time"),
			})
			return row.Err()
		})
	if err != nil {
		return nil, nil, err
	}

	var arrivals []tomo.Arrival
	err = readCSV(s.ArrivalsPath, []string{"network", "station", "phase", "event_id", "time", "residual"},
		func(row *csvRow) error {
			phase, err := tomo.ParsePhase(row.String("phase"))
			if err != nil {
				return err
			}
			arrivals = append(arrivals, tomo.Arrival{
				Network:  row.String("network"),
				Station:  row.String("station"),
				Phase:    phase,
				EventID:  row.Int64("event_id"),
				Time:     row.Float("time"),
				Residual: row.Float("residual"),
			})
			return row.Err()
		})
	if err != nil {
		return nil, nil, err
	}
	return events, arrivals, nil
}

// NetworkGeometry reads the station catalog.
func (s CSVSource) NetworkGeometry() ([]tomo.Station, error) {
	var stations []tomo.Station
	err := readCSV(s.StationsPath, []string{"network", "station", "latitude", "longitude", "depth"},
		func(row *csvRow) error {
			stations = append(stations, tomo.Station{
				Network:   row.String("network"),
				Station:   row.String("station"),
				Latitude:  row.Float("latitude"),
				Longitude: row.Float("longitude"),
				Depth:     row.Float("depth"),
			})
			return row.Err()
		})
	if err != nil {
		return nil, err
	}
	return stations, nil
}

// VelocityModels reads the gob-encoded starting models.
func (s CSVSource) VelocityModels() (*geom.Model, *geom.Model, error) {
	pwave, err := readModel(s.PwavePath)
	if err != nil {
		return nil, nil, err
	}
	swave, err := readModel(s.SwavePath)
	if err != nil {
		return nil, nil, err
	}
	return pwave, swave, nil
}

func readModel(path string) (*geom.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	defer f.Close()

	var model geom.Model
	if err := gob.NewDecoder(f).Decode(&model); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	return &model, nil
}

// WriteModel writes a gob-encoded model, the format
// VelocityModels reads back.
func WriteModel(path string, model *geom.Model) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(model); err != nil {
		return fmt.Errorf("encode model %s: %w", path, err)
	}
	return nil
}

// csvRow gives typed, by-name access to one record. Parse
// failures accumulate and surface through Err, so handlers
// can read several columns without per-column error
// plumbing.
type csvRow struct {
	path    string
	line    int
	columns map[string]int
	record  []string
	err     error
}

func (r *csvRow) field(name string) string {
	idx, ok := r.columns[name]
	if !ok || idx >= len(r.record) {
		if r.err == nil {
			r.err = fmt.Errorf("%s:%d: missing column %q", r.path, r.line, name)
		}
		return ""
	}
	return r.record[idx]
}

// String returns a column's raw value.
func (r *csvRow) String(name string) string { return r.field(name) }

// Float parses a column as a float64.
func (r *csvRow) Float(name string) float64 {
	v, err := strconv.ParseFloat(r.field(name), 64)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s:%d: column %q: %w", r.path, r.line, name, err)
	}
	return v
}

// Int64 parses a column as an int64.
func (r *csvRow) Int64(name string) int64 {
	v, err := strconv.ParseInt(r.field(name), 10, 64)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s:%d: column %q: %w", r.path, r.line, name, err)
	}
	return v
}

// Err reports the first parse failure in the row.
func (r *csvRow) Err() error { return r.err }

func readCSV(path string, required []string, handle func(row *csvRow) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("%s: read header: %w", path, err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return fmt.Errorf("%s: missing column %q", path, name)
		}
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%s:%d: %w", path, line, err)
		}
		row := &csvRow{path: path, line: line, columns: columns, record: record}
		if err := handle(row); err != nil {
			return err
		}
	}
	return nil
}
