package app

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovane/golang_services/internal/bulkops/domain"
	"github.com/agrovane/golang_services/internal/bulkops/excel"
)

func record(rowNumber int, values map[string]string) excel.Record {
	return excel.NewRecord(rowNumber, values)
}

func TestValidateFileMeta(t *testing.T) {
	t.Run("empty payload rejected", func(t *testing.T) {
		verr := validateFileMeta("recipients.xlsx", nil)
		require.NotNil(t, verr)
		assert.Contains(t, verr.Messages[0], "no file uploaded")
	})

	t.Run("oversized file rejected", func(t *testing.T) {
		verr := validateFileMeta("recipients.xlsx", bytes.Repeat([]byte{0x1}, MaxFileSizeBytes+1))
		require.NotNil(t, verr)
		assert.Contains(t, verr.Messages[0], "file too large")
	})

	t.Run("wrong extension rejected", func(t *testing.T) {
		verr := validateFileMeta("recipients.csv", []byte("data"))
		require.NotNil(t, verr)
		assert.Contains(t, verr.Messages[0], "only .xlsx and .xls")
	})

	t.Run("extension match is case-insensitive", func(t *testing.T) {
		assert.Nil(t, validateFileMeta("Recipients.XLSX", []byte("data")))
		assert.Nil(t, validateFileMeta("recipients.xls", []byte("data")))
	})
}

func TestValidateRows_CodeDistribution(t *testing.T) {
	spec := kindSpecs[domain.KindCodeDistribution]

	t.Run("valid rows normalize phones", func(t *testing.T) {
		rows, verr := validateRows([]excel.Record{
			record(2, map[string]string{"Email": "a@example.com", "Phone": "905551234567", "FarmerName": "Ali"}),
			record(3, map[string]string{"Email": "b@example.com", "Phone": "05559876543"}),
			record(4, map[string]string{"Email": "c@example.com", "Phone": "5551112233"}),
		}, spec)
		require.Nil(t, verr)
		require.Len(t, rows, 3)
		assert.Equal(t, "05551234567", rows[0].Phone)
		assert.Equal(t, "05559876543", rows[1].Phone)
		assert.Equal(t, "05551112233", rows[2].Phone)
		assert.Equal(t, "Ali", rows[0].Name)
		assert.Equal(t, 1, rows[0].Quantity)
	})

	t.Run("missing email rejected", func(t *testing.T) {
		_, verr := validateRows([]excel.Record{
			record(2, map[string]string{"Phone": "05551234567"}),
		}, spec)
		require.NotNil(t, verr)
		assert.Contains(t, verr.Messages[0], "row 2: email is required")
	})

	t.Run("invalid phone rejected with row number", func(t *testing.T) {
		_, verr := validateRows([]excel.Record{
			record(2, map[string]string{"Email": "a@example.com", "Phone": "123"}),
		}, spec)
		require.NotNil(t, verr)
		assert.Contains(t, verr.Messages[0], "row 2: invalid phone number")
	})

	t.Run("duplicate email rejected case-insensitively", func(t *testing.T) {
		_, verr := validateRows([]excel.Record{
			record(2, map[string]string{"Email": "Dup@Example.com", "Phone": "05551234567"}),
			record(3, map[string]string{"Email": "dup@example.com", "Phone": "05559876543"}),
		}, spec)
		require.NotNil(t, verr)
		assert.Contains(t, verr.Messages[0], "row 3: duplicate email")
	})

	t.Run("duplicate detected across phone formats", func(t *testing.T) {
		_, verr := validateRows([]excel.Record{
			record(2, map[string]string{"Email": "a@example.com", "Phone": "905551234567"}),
			record(3, map[string]string{"Email": "b@example.com", "Phone": "5551234567"}),
		}, spec)
		require.NotNil(t, verr)
		assert.Contains(t, verr.Messages[0], "row 3: duplicate phone number")
	})

	t.Run("error list bounded to first ten", func(t *testing.T) {
		records := make([]excel.Record, 0, 15)
		for i := 0; i < 15; i++ {
			records = append(records, record(i+2, map[string]string{
				"Email": fmt.Sprintf("u%d@example.com", i),
				"Phone": "bad",
			}))
		}
		_, verr := validateRows(records, spec)
		require.NotNil(t, verr)
		require.Len(t, verr.Messages, maxReportedErrors+1)
		assert.Contains(t, verr.Messages[maxReportedErrors], "5 more error(s)")
	})
}

func TestValidateRows_DealerInvitation(t *testing.T) {
	spec := kindSpecs[domain.KindDealerInvitation]

	t.Run("code count and tier parsed", func(t *testing.T) {
		rows, verr := validateRows([]excel.Record{
			record(2, map[string]string{
				"Email": "dealer@example.com", "Phone": "05551234567",
				"DealerName": "Acme Tarim", "CodeCount": "25", "PackageTier": "m",
			}),
		}, spec)
		require.Nil(t, verr)
		require.Len(t, rows, 1)
		assert.Equal(t, 25, rows[0].Quantity)
		assert.Equal(t, domain.TierM, rows[0].Tier)
	})

	t.Run("missing dealer name rejected", func(t *testing.T) {
		_, verr := validateRows([]excel.Record{
			record(2, map[string]string{"Email": "d@example.com", "Phone": "05551234567", "CodeCount": "5"}),
		}, spec)
		require.NotNil(t, verr)
		assert.Contains(t, verr.Messages[0], "row 2: name is required")
	})

	t.Run("non-positive code count rejected", func(t *testing.T) {
		for _, raw := range []string{"0", "-3", "many", ""} {
			_, verr := validateRows([]excel.Record{
				record(2, map[string]string{
					"Email": "d@example.com", "Phone": "05551234567",
					"DealerName": "Acme", "CodeCount": raw,
				}),
			}, spec)
			require.NotNil(t, verr, "code count %q", raw)
			assert.Contains(t, verr.Messages[0], "invalid code count")
		}
	})

	t.Run("mixed tier mode rejected", func(t *testing.T) {
		_, verr := validateRows([]excel.Record{
			record(2, map[string]string{
				"Email": "a@example.com", "Phone": "05551234567",
				"DealerName": "A", "CodeCount": "1", "PackageTier": "S",
			}),
			record(3, map[string]string{
				"Email": "b@example.com", "Phone": "05559876543",
				"DealerName": "B", "CodeCount": "1",
			}),
		}, spec)
		require.NotNil(t, verr)
		assert.Contains(t, verr.Messages[0], "mixed mode not supported")
	})

	t.Run("unknown tier rejected", func(t *testing.T) {
		_, verr := validateRows([]excel.Record{
			record(2, map[string]string{
				"Email": "a@example.com", "Phone": "05551234567",
				"DealerName": "A", "CodeCount": "1", "PackageTier": "XXL",
			}),
		}, spec)
		require.NotNil(t, verr)
		assert.Contains(t, verr.Messages[0], "row 2")
	})
}

func TestValidateRows_FarmerInvitation(t *testing.T) {
	spec := kindSpecs[domain.KindFarmerInvitation]

	t.Run("email optional but validated when present", func(t *testing.T) {
		rows, verr := validateRows([]excel.Record{
			record(2, map[string]string{"Phone": "05551234567"}),
		}, spec)
		require.Nil(t, verr)
		assert.Empty(t, rows[0].Email)

		_, verr = validateRows([]excel.Record{
			record(2, map[string]string{"Phone": "05551234567", "Email": "not-an-email"}),
		}, spec)
		require.NotNil(t, verr)
		assert.Contains(t, verr.Messages[0], "invalid email")
	})

	t.Run("notes carried through", func(t *testing.T) {
		rows, verr := validateRows([]excel.Record{
			record(2, map[string]string{"Phone": "05551234567", "Notes": "call after harvest"}),
		}, spec)
		require.Nil(t, verr)
		assert.Equal(t, "call after harvest", rows[0].Notes)
	})

	t.Run("name length bounded", func(t *testing.T) {
		_, verr := validateRows([]excel.Record{
			record(2, map[string]string{"Phone": "05551234567", "FarmerName": strings.Repeat("x", maxNameLength+1)}),
		}, spec)
		require.NotNil(t, verr)
		assert.Contains(t, verr.Messages[0], "name too long")
	})

	t.Run("name length counted in characters not bytes", func(t *testing.T) {
		// 150 Turkish characters, each two bytes in UTF-8, is within the
		// limit even though the byte length exceeds it.
		rows, verr := validateRows([]excel.Record{
			record(2, map[string]string{"Phone": "05551234567", "FarmerName": strings.Repeat("ğ", 150)}),
		}, spec)
		require.Nil(t, verr)
		require.Len(t, rows, 1)

		_, verr = validateRows([]excel.Record{
			record(2, map[string]string{"Phone": "05551234567", "FarmerName": strings.Repeat("ğ", maxNameLength+1)}),
		}, spec)
		require.NotNil(t, verr)
		assert.Contains(t, verr.Messages[0], "name too long")
	})
}
