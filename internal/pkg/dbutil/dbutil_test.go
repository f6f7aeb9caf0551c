package dbutil

import (
	"database/sql/driver"
	"fmt"
	"net"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestFinalizeRebind(t *testing.T) {
	query, args := Finalize("INSERT INTO manuals (chunk,url) VALUES (?,?),(?,?)", []interface{}{"a", "u1", "b", "u2"})
	require.Equal(t, "INSERT INTO manuals (chunk,url) VALUES ($1,$2),($3,$4)", query)
	require.Len(t, args, 4)
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "bad conn", err: fmt.Errorf("query: %w", driver.ErrBadConn), want: true},
		{name: "pq connection", err: &pq.Error{Code: "08006"}, want: true},
		{name: "pq shutdown", err: &pq.Error{Code: "57P01"}, want: true},
		{name: "pq syntax", err: &pq.Error{Code: "42601"}, want: false},
		{name: "dial", err: &net.OpError{Op: "dial", Err: fmt.Errorf("refused")}, want: true},
		{name: "plain", err: fmt.Errorf("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IsConnectionError(tt.err))
		})
	}
}
