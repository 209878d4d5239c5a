package sales

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReportWhere(t *testing.T) {
	where, args := reportWhere(ReportFilter{}, 1)
	assert.Empty(t, where)
	assert.Empty(t, args)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	where, args = reportWhere(ReportFilter{AdvisorID: 4, From: from}, 1)
	assert.Equal(t, " WHERE q.advisor_id = $1 AND q.created_at >= $2", where)
	assert.Equal(t, []any{int64(4), from}, args)
}
