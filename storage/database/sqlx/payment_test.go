package sqlxrepos

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/studio/core"
)

func Test_orderBy(t *testing.T) {
	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     string
	}{
		{name: "default", want: "p.created_at ASC, p.id ASC"},
		{
			name:     "known fields",
			ordering: []core.DBOrdering{{Field: "payment_date"}, {Field: "total_amount", Ascending: true}},
			want:     "p.payment_date DESC, p.total_amount ASC, p.created_at ASC, p.id ASC",
		},
		{
			name:     "unknown fields are never interpolated",
			ordering: []core.DBOrdering{{Field: "1; DROP TABLE payments"}},
			want:     "p.created_at ASC, p.id ASC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderBy(tt.ordering))
		})
	}
}
