package mongo

import (
	"go.mongodb.org/mongo-driver/mongo"

	"glampbook/internal/pkg/errs"
)

const writeConflictCode = 112

// conflictOrErr maps driver errors that mean "someone else wrote first" to
// the caller's conflict sentinel so Retry can try again.
func conflictOrErr(err error, conflict error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) || isWriteConflict(err) {
		return errs.Wrap(conflict, err.Error())
	}
	return err
}

func isWriteConflict(err error) bool {
	var se mongo.ServerError
	if errs.As(err, &se) {
		return se.HasErrorCode(writeConflictCode) || se.HasErrorLabel("TransientTransactionError")
	}
	return false
}
