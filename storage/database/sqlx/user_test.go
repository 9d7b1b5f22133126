package sqlxrepos

import (
	"testing"

	"github.com/oraclelc/backend/core"
)

func Test_userOrderClause(t *testing.T) {
	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     string
	}{
		{
			name: "no ordering",
			want: "created_at DESC",
		},
		{
			name:     "single field",
			ordering: []core.DBOrdering{{Field: "username", Ascending: true}},
			want:     "username ASC",
		},
		{
			name: "multiple fields",
			ordering: []core.DBOrdering{
				{Field: "name", Ascending: true},
				{Field: "created_at"},
			},
			want: "name ASC, created_at DESC",
		},
		{
			name:     "unknown field dropped",
			ordering: []core.DBOrdering{{Field: "password_hash", Ascending: true}},
			want:     "created_at DESC",
		},
		{
			name: "sql text never reaches the clause",
			ordering: []core.DBOrdering{
				{Field: `created_at; DROP TABLE "user"; --`, Ascending: true},
				{Field: "(SELECT 1)"},
			},
			want: "created_at DESC",
		},
		{
			name: "known fields survive a mixed list",
			ordering: []core.DBOrdering{
				{Field: "1=1", Ascending: true},
				{Field: "email"},
			},
			want: "email DESC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := userOrderClause(tt.ordering); got != tt.want {
				t.Errorf("userOrderClause() = %q; want %q", got, tt.want)
			}
		})
	}
}
