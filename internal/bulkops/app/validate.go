package app

import (
	"fmt"
	"net/mail"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/agrovane/golang_services/internal/bulkops/domain"
	"github.com/agrovane/golang_services/internal/bulkops/excel"
)

const (
	// MaxFileSizeBytes caps uploaded spreadsheets at 5 MiB.
	MaxFileSizeBytes = 5 * 1024 * 1024
	// MaxRowCount caps the number of data rows per upload.
	MaxRowCount = 2000
	// maxNameLength bounds the optional recipient name column.
	maxNameLength = 200
	// maxReportedErrors bounds the error list returned to the caller.
	maxReportedErrors = 10
)

var allowedExtensions = map[string]bool{".xlsx": true, ".xls": true}

// ValidationError is the structured rejection for file-level, row-level, and
// availability failures. It never coexists with a created job: a submission
// that produces one has no durable or external side effect.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "invalid submission: " + strings.Join(e.Messages, "; ")
}

func newValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

// boundedValidationError keeps the first maxReportedErrors messages and
// notes how many were dropped.
func boundedValidationError(messages []string) *ValidationError {
	if len(messages) > maxReportedErrors {
		dropped := len(messages) - maxReportedErrors
		messages = append(messages[:maxReportedErrors:maxReportedErrors],
			fmt.Sprintf("... and %d more error(s)", dropped))
	}
	return &ValidationError{Messages: messages}
}

// validateFileMeta applies the file-level checks that run before any row is
// parsed: non-empty payload, size cap, and accepted extension.
func validateFileMeta(fileName string, data []byte) *ValidationError {
	if len(data) == 0 {
		return newValidationError("no file uploaded")
	}
	if len(data) > MaxFileSizeBytes {
		return newValidationError(fmt.Sprintf("file too large: maximum %d MB", MaxFileSizeBytes/(1024*1024)))
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if !allowedExtensions[ext] {
		return newValidationError("invalid file format: only .xlsx and .xls are supported")
	}
	return nil
}

// validateRows converts parsed records into recipient rows, applying all
// per-row checks and in-file duplicate detection. Validation is
// all-or-nothing: any row error rejects the whole submission.
func validateRows(records []excel.Record, spec kindSpec) ([]domain.RecipientRow, *ValidationError) {
	var errs []string
	rows := make([]domain.RecipientRow, 0, len(records))

	seenEmails := make(map[string]bool)
	seenPhones := make(map[string]bool)
	tierRows, plainRows := 0, 0

	for _, rec := range records {
		row := domain.RecipientRow{
			RowNumber: rec.RowNumber,
			Email:     rec.Get(colEmail),
			Name:      rec.Get(spec.nameColumn),
			Quantity:  1,
		}
		if spec.notesColumn != "" {
			row.Notes = rec.Get(spec.notesColumn)
		}

		phone := rec.Get(colPhone)
		if phone == "" || !isValidMobilePhone(phone) {
			errs = append(errs, fmt.Sprintf("row %d: invalid phone number %q", rec.RowNumber, phone))
			continue
		}
		row.Phone = normalizePhone(phone)

		if spec.emailRequired && row.Email == "" {
			errs = append(errs, fmt.Sprintf("row %d: email is required", rec.RowNumber))
			continue
		}
		if row.Email != "" && !isValidEmail(row.Email) {
			errs = append(errs, fmt.Sprintf("row %d: invalid email %q", rec.RowNumber, row.Email))
			continue
		}

		if spec.nameRequired && row.Name == "" {
			errs = append(errs, fmt.Sprintf("row %d: name is required", rec.RowNumber))
			continue
		}
		if utf8.RuneCountInString(row.Name) > maxNameLength {
			errs = append(errs, fmt.Sprintf("row %d: name too long (max %d characters)", rec.RowNumber, maxNameLength))
			continue
		}

		if spec.quantityColumn != "" {
			raw := rec.Get(spec.quantityColumn)
			qty, err := strconv.Atoi(raw)
			if err != nil || qty <= 0 {
				errs = append(errs, fmt.Sprintf("row %d: invalid code count %q", rec.RowNumber, raw))
				continue
			}
			row.Quantity = qty
		}

		if spec.tierColumn != "" {
			if raw := rec.Get(spec.tierColumn); raw != "" {
				tier, err := domain.ParseTier(raw)
				if err != nil {
					errs = append(errs, fmt.Sprintf("row %d: %v", rec.RowNumber, err))
					continue
				}
				row.Tier = tier
				tierRows++
			} else {
				plainRows++
			}
		}

		emailKey := strings.ToLower(row.Email)
		if emailKey != "" && seenEmails[emailKey] {
			errs = append(errs, fmt.Sprintf("row %d: duplicate email %q", rec.RowNumber, row.Email))
			continue
		}
		if seenPhones[row.Phone] {
			errs = append(errs, fmt.Sprintf("row %d: duplicate phone number %q", rec.RowNumber, row.Phone))
			continue
		}
		if emailKey != "" {
			seenEmails[emailKey] = true
		}
		seenPhones[row.Phone] = true

		rows = append(rows, row)
	}

	// Either every row carries a tier override or none does.
	if tierRows > 0 && plainRows > 0 {
		errs = append(errs, fmt.Sprintf(
			"mixed mode not supported: all rows must specify a tier, or none (%d row(s) missing a tier)", plainRows))
	}

	if len(errs) > 0 {
		return nil, boundedValidationError(errs)
	}
	return rows, nil
}

// isValidEmail accepts addresses that parse as a bare RFC 5322 address.
func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
