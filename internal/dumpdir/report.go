package dumpdir

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jaxxstorm/ureport/internal/config"
	"github.com/tidwall/jsonc"
	"go.uber.org/zap"
)

// FatalError wraps report assembly failures when the preferences do not ask
// for them to be returned as ordinary errors.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// LoadMicroReport reads the prepared report at path (comments and trailing
// commas allowed) and embeds the preferred auth items from the problem
// directory into its "auth" object.
func (d *Dir) LoadMicroReport(path string, prefs config.Preferences, logger *zap.Logger) ([]byte, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	report, err := readReport(path)
	if err != nil {
		if prefs.ReturnOnFailure {
			logger.Info("cannot build micro report", zap.Error(err))
			return nil, err
		}
		return nil, &FatalError{Err: err}
	}
	if len(prefs.AuthItems) == 0 {
		return json.Marshal(report)
	}

	auth := map[string]string{}
	if raw, ok := report["auth"]; ok {
		if err := json.Unmarshal(raw, &auth); err != nil {
			return nil, &FatalError{Err: fmt.Errorf("micro report 'auth' is not an object of strings: %w", err)}
		}
	}
	for _, key := range prefs.AuthItems {
		value, err := d.LoadText(key)
		if err != nil {
			logger.Warn(fmt.Sprintf("cannot include '%s' in 'auth'", key), zap.Error(err))
			continue
		}
		auth[key] = strings.TrimRight(value, "\n")
	}
	encoded, err := json.Marshal(auth)
	if err != nil {
		return nil, err
	}
	report["auth"] = encoded
	return json.Marshal(report)
}

func readReport(path string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read micro report: %w", err)
	}
	var report map[string]json.RawMessage
	if err := json.Unmarshal(jsonc.ToJSON(data), &report); err != nil {
		return nil, fmt.Errorf("parse micro report %s: %w", path, err)
	}
	if report == nil {
		return nil, fmt.Errorf("micro report %s is empty", path)
	}
	return report, nil
}
