package repository_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JaimeStill/agrogestion/pkg/repository"
)

var (
	errNotFound  = errors.New("report not found")
	errDuplicate = errors.New("report already exists")
)

func TestMapError(t *testing.T) {
	other := errors.New("syntax error at or near")
	foreignKey := &pgconn.PgError{Code: "23503"}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", sql.ErrNoRows, errNotFound},
		{"wrapped no rows", fmt.Errorf("scan report: %w", sql.ErrNoRows), errNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, errDuplicate},
		{"other pg error passes through", foreignKey, foreignKey},
		{"plain error passes through", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := repository.MapError(tt.err, errNotFound, errDuplicate)
			if tt.want == nil {
				if got != nil {
					t.Errorf("MapError() = %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("MapError() = %v, want %v", got, tt.want)
			}
		})
	}
}
