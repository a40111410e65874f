package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/okian/jci/internal/domain/model"
)

// Output file names, without the optional ".gz" suffix.
const (
	JobOutput      = "job_complexity.csv"
	TaskOutput     = "task_complexity.csv"
	ManifestOutput = "manifest.yaml"
)

// JobHeader and TaskHeader are the output column orders.
var (
	JobHeader  = []string{ColJobID, "jci", ColWage, ColRegionType, ColRegionName, ColTitle, ColEmployment, ColGroupName}
	TaskHeader = []string{ColTaskID, "tci", "avg_wage", ColRegionType, ColRegionName, ColTitle, ColGroupID, ColGroupName}
)

type gzipWriteCloser struct {
	*gzip.Writer
	f *os.File
}

func (g gzipWriteCloser) Close() error {
	return errors.Join(g.Writer.Close(), g.f.Close())
}

// create creates path, compressing when it ends in ".gz". Parent directories
// are created as needed.
func create(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	return gzipWriteCloser{Writer: gzip.NewWriter(f), f: f}, nil
}

// OutputPath returns the path of an output file in dir.
func OutputPath(dir, name string, compress bool) string {
	if compress {
		name += ".gz"
	}
	return filepath.Join(dir, name)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func writeTable(path string, header []string, n int, row func(i int) []string) (err error) {
	w, err := create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteJobs writes assembled job rows. Missing metadata is written as an empty cell.
func WriteJobs(path string, rows []model.JobRow) error {
	return writeTable(path, JobHeader, len(rows), func(i int) []string {
		r := rows[i]
		emp := ""
		if r.Employment != nil && *r.Employment != model.UnknownEmployment {
			emp = strconv.FormatInt(*r.Employment, 10)
		}
		return []string{
			r.JobID,
			formatFloat(r.JCI),
			formatFloat(r.Wage),
			string(r.Region.Type),
			r.Region.Name,
			optional(r.Title),
			emp,
			optional(r.GroupName),
		}
	})
}

// WriteTasks writes assembled task rows.
func WriteTasks(path string, rows []model.TaskRow) error {
	return writeTable(path, TaskHeader, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			r.TaskID,
			formatFloat(r.TCI),
			formatFloat(r.AvgWage),
			string(r.Region.Type),
			r.Region.Name,
			optional(r.Title),
			optional(r.GroupID),
			optional(r.GroupName),
		}
	})
}
