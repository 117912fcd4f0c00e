package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrLocationNotFound      = errors.New("location not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrSalesCategoryNotFound = errors.New("sales category not found")
	ErrPaymentTypeNotFound   = errors.New("payment type not found")
	ErrTicketNotFound        = errors.New("ticket not found")
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrSalesDayNotFound      = errors.New("sales day not found")
	ErrDeductionNotFound     = errors.New("deduction not found")

	ErrDuplicateTicketNumber = errors.New("ticket number already exists")
	ErrOpenSalesDayExists    = errors.New("user already has an open sales day")
	ErrTaxRateOverlap        = errors.New("tax rate period overlaps an existing period")
	ErrDuplicateReference    = errors.New("reference name or code already exists")
)

const pgUniqueViolation = "23505"

// IsUniqueViolation recognises a unique constraint failure from any of the
// drivers in use: translated gorm errors, raw pgx errors and sqlite messages.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
