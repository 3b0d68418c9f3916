package contact

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string) ([]Contact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV reads name,number rows in order. Rows with fewer than two fields
// are skipped; extra fields are ignored. A UTF-8 BOM on the first row is dropped.
func ReadCSV(r io.Reader) ([]Contact, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []Contact
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("contacts: line %d: %w", line, err)
		}
		if len(rec) < 2 {
			continue
		}
		name := rec[0]
		if line == 1 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		out = append(out, Contact{Name: strings.TrimSpace(name), RawNumber: strings.TrimSpace(rec[1])})
	}
}

// WriteCSV writes contacts in the same name,number layout ReadCSV accepts.
func WriteCSV(w io.Writer, in []Contact) error {
	cw := csv.NewWriter(w)
	for _, c := range in {
		if err := cw.Write([]string{c.Name, c.RawNumber}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
