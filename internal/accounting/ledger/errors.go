package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyPosted matches AlreadyPostedError.
	ErrAlreadyPosted = errors.New("ledger: document already posted")
	// ErrNotPosted matches NotPostedError.
	ErrNotPosted = errors.New("ledger: document not posted")
	// ErrUnbalancedVoucher blocks writing a voucher whose debits and credits differ.
	ErrUnbalancedVoucher = errors.New("ledger: voucher is not balanced")
	// ErrPostingInProgress indicates another worker holds the document's posting lock.
	ErrPostingInProgress = errors.New("ledger: posting already in progress")
	// ErrInvalidJournal wraps manual journal validation failures.
	ErrInvalidJournal = errors.New("ledger: invalid journal")
	// ErrDocumentCancelled blocks posting of cancelled documents.
	ErrDocumentCancelled = errors.New("ledger: document is cancelled")
)

// AlreadyPostedError is returned when posting a document that is already in the ledger.
type AlreadyPostedError struct {
	Reference ReferenceType
	ID        int64
	Number    string
}

func (e *AlreadyPostedError) Error() string {
	return fmt.Sprintf("ledger: %s %s (%d) already posted", e.Reference, e.Number, e.ID)
}

// Is matches ErrAlreadyPosted.
func (e *AlreadyPostedError) Is(target error) bool { return target == ErrAlreadyPosted }

// NotPostedError is returned when reversing a document that is not in the ledger.
type NotPostedError struct {
	Reference ReferenceType
	ID        int64
	Number    string
}

func (e *NotPostedError) Error() string {
	return fmt.Sprintf("ledger: %s %s (%d) not posted", e.Reference, e.Number, e.ID)
}

// Is matches ErrNotPosted.
func (e *NotPostedError) Is(target error) bool { return target == ErrNotPosted }
