package domain

// RecipientRow is the transient, validated form of one spreadsheet line. It
// is never persisted: a row either becomes a queue message or the whole
// submission is rejected with that row's error.
type RecipientRow struct {
	// RowNumber is the spreadsheet row index (header is row 1, so data rows
	// start at 2). It identifies the row in validation errors and messages.
	RowNumber int

	Email string
	// Phone holds the normalized form (05XXXXXXXXX) after validation.
	Phone string
	Name  string
	Notes string

	// Tier is the optional per-row tier override. Either every row in a
	// file sets one or none do.
	Tier Tier

	// Quantity is the number of codes this recipient receives. Dealer
	// invitations read it from the sheet; the other flows fix it at 1.
	Quantity int
}
