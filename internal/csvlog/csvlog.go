// internal/csvlog/csvlog.go

// Package csvlog appends poll snapshots to a CSV file, one row per
// Reading, with both raw and calibrated values.
package csvlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/greendeserttech/reactor-monitor/internal/calibrate"
	"github.com/greendeserttech/reactor-monitor/internal/poller"
)

var header = []string{
	"timestamp", "reactor",
	"temperature_raw_c", "temperature_c",
	"ph_raw", "ph",
	"f1", "f2", "f3", "f4", "f5", "f6", "f7", "f8", "nir",
	"harvest_pct",
	"relay", "led", "status",
}

// Writer appends readings to one CSV file. Not safe for concurrent use;
// the caller drains the engine's reading channel from a single goroutine.
type Writer struct {
	f      *os.File
	w      *csv.Writer
	params calibrate.Params
}

// New opens or creates the file at path in append mode. The header row is
// written only when the file starts empty.
func New(path string, params calibrate.Params) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv log: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat csv log: %w", err)
	}

	w := &Writer{
		f:      f,
		w:      csv.NewWriter(f),
		params: params,
	}

	if info.Size() == 0 {
		if err := w.w.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write csv header: %w", err)
		}
		w.w.Flush()
		if err := w.w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to flush csv header: %w", err)
		}
	}

	return w, nil
}

// Write appends one reading, flushed to disk before returning.
func (w *Writer) Write(r poller.Reading) error {
	d := calibrate.Apply(r, w.params)

	row := make([]string, 0, len(header))
	row = append(row,
		r.Timestamp.Format("2006-01-02 15:04:05"),
		r.ReactorName,
		strconv.FormatFloat(r.TemperatureC, 'f', 1, 64),
		strconv.FormatFloat(d.TemperatureC, 'f', 2, 64),
		strconv.FormatFloat(r.PH, 'f', 1, 64),
		strconv.FormatFloat(d.PH, 'f', 3, 64),
	)
	for i := 0; i < 9; i++ {
		var v uint16
		if i < len(r.Light) {
			v = r.Light[i]
		}
		row = append(row, strconv.FormatUint(uint64(v), 10))
	}
	row = append(row,
		strconv.FormatFloat(d.HarvestPercent, 'f', 1, 64),
		strconv.FormatUint(uint64(r.Relay), 10),
		strconv.FormatUint(uint64(r.Led), 10),
		strconv.FormatUint(uint64(r.Status), 10),
	)

	if err := w.w.Write(row); err != nil {
		return fmt.Errorf("failed to write csv row: %w", err)
	}
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv row: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
