package database

import (
	"fmt"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Host: "db.internal", Port: 3307, User: "svc", Password: "p@ss:word", Database: "inventory"}
	dsn := cfg.DSN()

	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("dsn %q does not parse: %v", dsn, err)
	}
	if parsed.Passwd != "p@ss:word" {
		t.Errorf("password was not preserved, got %q", parsed.Passwd)
	}
	if parsed.Addr != "db.internal:3307" || parsed.DBName != "inventory" || !parsed.ParseTime {
		t.Errorf("unexpected parsed config %+v", parsed)
	}
	if !strings.Contains(dsn, "charset=utf8mb4") {
		t.Errorf("charset param missing from %q", dsn)
	}
}

func TestIsDuplicateKey(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"wrapped mysql 1062", errors.Wrap(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, "insert"), true},
		{"other mysql error", &mysql.MySQLError{Number: 1213, Message: "Deadlock"}, false},
		{"plain", fmt.Errorf("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDuplicateKey(tt.err); got != tt.want {
				t.Errorf("IsDuplicateKey(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
