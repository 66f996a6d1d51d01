package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBulkDistributionJob(t *testing.T) {
	sponsorID := uuid.New()
	job := NewBulkDistributionJob(sponsorID, KindCodeDistribution, 42, "recipients.xlsx", 1024)

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, sponsorID, job.SponsorID)
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, 42, job.TotalRecipients)
	assert.Zero(t, job.ProcessedCount)
	assert.False(t, job.PurchaseID.Valid)
	assert.False(t, job.StartedAt.Valid)
}

func TestProgressPercentage(t *testing.T) {
	job := &BulkDistributionJob{TotalRecipients: 8, ProcessedCount: 2}
	assert.Equal(t, 25, job.ProgressPercentage())

	job.ProcessedCount = 8
	assert.Equal(t, 100, job.ProgressPercentage())

	empty := &BulkDistributionJob{}
	assert.Equal(t, 0, empty.ProgressPercentage())
}

func TestTerminalStatus(t *testing.T) {
	assert.Equal(t, StatusCompleted, TerminalStatus(10, 0))
	assert.Equal(t, StatusFailed, TerminalStatus(0, 10))
	assert.Equal(t, StatusPartialSuccess, TerminalStatus(7, 3))
}

func TestParseTier(t *testing.T) {
	for input, want := range map[string]Tier{
		"S": TierS, "m": TierM, " l ": TierL, "xl": TierXL, "XL": TierXL,
	} {
		tier, err := ParseTier(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, tier)
	}

	for _, input := range []string{"", "XS", "small", "1"} {
		_, err := ParseTier(input)
		assert.Error(t, err, "input %q", input)
	}
}
