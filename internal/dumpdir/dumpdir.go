// Package dumpdir reads and writes the files of one problem directory: the
// reported_to log, the not-reportable solution text, the user's comment and
// the prepared micro report.
package dumpdir

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	FileReportedTo    = "reported_to"
	FileNotReportable = "not-reportable"
	FileComment       = "comment"
	FileMicroReport   = "ureport.json"
)

type Dir struct {
	Path string
}

func Open(path string) (*Dir, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open problem directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("'%s' is not a problem directory", path)
	}
	return &Dir{Path: path}, nil
}

// LoadText returns the content of the named file. Missing files yield
// fs.ErrNotExist.
func (d *Dir) LoadText(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(d.Path, name))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (d *Dir) SaveText(name, text string) error {
	return os.WriteFile(filepath.Join(d.Path, name), []byte(text), 0o640)
}

// SaveSolution stores the server's solution text. Its presence marks the
// problem as not worth reporting further.
func (d *Dir) SaveSolution(text string) error {
	return d.SaveText(FileNotReportable, text)
}

// AddReportedTo appends line to the reported_to log unless it is already
// there.
func (d *Dir) AddReportedTo(line string) error {
	lines, err := d.reportedToLines()
	if err != nil {
		return err
	}
	for _, existing := range lines {
		if existing == line {
			return nil
		}
	}
	f, err := os.OpenFile(filepath.Join(d.Path, FileReportedTo), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (d *Dir) ReportedTo() ([]ReportResult, error) {
	lines, err := d.reportedToLines()
	if err != nil {
		return nil, err
	}
	out := make([]ReportResult, 0, len(lines))
	for _, line := range lines {
		out = append(out, ParseReportedTo(line))
	}
	return out, nil
}

// FindReportedTo returns the last entry with the given label.
func (d *Dir) FindReportedTo(label string) (ReportResult, bool, error) {
	results, err := d.ReportedTo()
	if err != nil {
		return ReportResult{}, false, err
	}
	for i := len(results) - 1; i >= 0; i-- {
		if results[i].Label == label {
			return results[i], true, nil
		}
	}
	return ReportResult{}, false, nil
}

func (d *Dir) reportedToLines() ([]string, error) {
	f, err := os.Open(filepath.Join(d.Path, FileReportedTo))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	lines := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
