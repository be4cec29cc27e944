package shared

import "fmt"

// PostingLockKey builds redis keys guarding ledger posting of one document.
func PostingLockKey(reference string, id int64) string {
	return fmt.Sprintf("ledger:posting:%s:%d:lock", reference, id)
}
