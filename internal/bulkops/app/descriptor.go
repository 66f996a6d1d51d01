package app

import (
	"github.com/agrovane/golang_services/internal/bulkops/domain"
	"github.com/agrovane/golang_services/internal/bulkops/excel"
)

// Column names recognized in uploaded spreadsheets. Matching is
// case-insensitive.
const (
	colEmail     = "Email"
	colPhone     = "Phone"
	colFarmer    = "FarmerName"
	colDealer    = "DealerName"
	colTier      = "PackageTier"
	colCodeCount = "CodeCount"
	colNotes     = "Notes"
)

// kindSpec parameterizes the single submission pipeline per job kind:
// which columns the sheet must carry, which contact fields are mandatory,
// how many codes a row consumes, and whether codes are drawn from a
// specific purchase. The three flows share everything else.
type kindSpec struct {
	schema excel.Schema

	emailRequired bool
	nameColumn    string
	nameRequired  bool
	notesColumn   string

	// tierColumn is empty for kinds without per-row tier overrides.
	tierColumn string

	// quantityColumn names the per-row code count column; empty means every
	// recipient consumes exactly one code.
	quantityColumn string

	// usesPurchase scopes availability to the sponsor's latest completed
	// purchase with codes left, located before the file is parsed.
	usesPurchase bool
}

var kindSpecs = map[domain.JobKind]kindSpec{
	domain.KindCodeDistribution: {
		schema: excel.Schema{
			Required: []string{colEmail, colPhone},
			Optional: []string{colFarmer},
		},
		emailRequired: true,
		nameColumn:    colFarmer,
		usesPurchase:  true,
	},
	domain.KindDealerInvitation: {
		schema: excel.Schema{
			Required: []string{colEmail, colPhone, colCodeCount},
			Optional: []string{colDealer, colTier},
		},
		emailRequired:  true,
		nameColumn:     colDealer,
		nameRequired:   true,
		tierColumn:     colTier,
		quantityColumn: colCodeCount,
	},
	domain.KindFarmerInvitation: {
		schema: excel.Schema{
			Required: []string{colPhone},
			Optional: []string{colFarmer, colEmail, colTier, colNotes},
		},
		nameColumn:  colFarmer,
		tierColumn:  colTier,
		notesColumn: colNotes,
	},
}
