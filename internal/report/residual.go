// Package report writes the end-of-batch artifacts for the operator.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"blkmsg/internal/contact"
	"blkmsg/internal/dispatch"
)

// WriteResidual writes the failed contacts of sum as a contact CSV that can be
// fed straight back as the next run's input. It returns "" when nothing failed.
// The file is written atomically (temp file + rename).
func WriteResidual(dir string, sum dispatch.Summary, pending []contact.Recipient) (string, error) {
	failed := sum.FailedResults()
	if len(failed) == 0 && len(pending) == 0 {
		return "", nil
	}
	rows := make([]contact.Contact, 0, len(failed)+len(pending))
	for _, r := range failed {
		rows = append(rows, contact.Contact{Name: r.Recipient.Name, RawNumber: r.Recipient.DialNumber})
	}
	for _, r := range pending {
		rows = append(rows, contact.Contact{Name: r.Name, RawNumber: r.DialNumber})
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, sum.BatchID+".residual.csv")
	tmp, err := os.CreateTemp(dir, ".residual-*.csv")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if err := contact.WriteCSV(tmp, rows); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write residual: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}

// Summary renders a short plain-text summary of sum for notifications.
func Summary(sum dispatch.Summary, residual string) string {
	var b strings.Builder
	state := "finished"
	if sum.Canceled {
		state = "interrupted"
	}
	fmt.Fprintf(&b, "Broadcast %s %s\n", sum.BatchID, state)
	fmt.Fprintf(&b, "sent %d / failed %d / pending %d of %d in %s\n",
		sum.Sent, sum.Failed, sum.Pending(), sum.Total, sum.FinishedAt.Sub(sum.StartedAt).Round(time.Second))
	const maxListed = 20
	for i, r := range sum.FailedResults() {
		if i == maxListed {
			fmt.Fprintf(&b, "... and %d more\n", sum.Failed-maxListed)
			break
		}
		fmt.Fprintf(&b, "- %s (%s): %v\n", r.Recipient.Name, r.Recipient.DialNumber, r.Err)
	}
	if residual != "" {
		fmt.Fprintf(&b, "residual list: %s\n", residual)
	}
	return strings.TrimRight(b.String(), "\n")
}
