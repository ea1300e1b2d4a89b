package store

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// logTimeLayout is the timestamp format of audit log lines. The full line
// format, "{timestamp} - {context} - {message}", is a compatibility contract
// with external readers of the record layout.
const logTimeLayout = "2006-01-02 15:04:05"

// AppendLog appends one line to the record's audit log and syncs it to disk
// before returning, so a caller observing the entry never observes an older
// file set.
func (s *Store) AppendLog(rec *Record, context, message string) error {
	f, err := os.OpenFile(rec.Path(LogFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s - %s - %s\n", time.Now().UTC().Format(logTimeLayout), context, message)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("appending audit log: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing audit log: %w", err)
	}
	return nil
}

// ReadLog returns the audit log lines in append order. A record with no log
// yet returns an empty slice.
func (s *Store) ReadLog(rec *Record) ([]string, error) {
	data, err := os.ReadFile(rec.Path(LogFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading audit log: %w", err)
	}
	trimmed := strings.TrimSuffix(string(data), "\n")
	if trimmed == "" {
		return nil, nil
	}
	return strings.Split(trimmed, "\n"), nil
}
