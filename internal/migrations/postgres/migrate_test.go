package postgres

import (
	"strings"
	"testing"
)

func TestStatementsAreIdempotent(t *testing.T) {
	for i, stmt := range Statements {
		if !strings.Contains(stmt, "IF NOT EXISTS") {
			t.Errorf("statement %d is not idempotent: %s", i+1, stmt)
		}
	}
}
