package postgres

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// google/uuid's UUID.Scan has a *UUID receiver, so it cannot satisfy
// sql.Scanner when the destination is a **uuid.UUID (a nullable FK field's
// address). These helpers scan through sql.NullString/sql.NullTime instead
// and convert afterward.

func nullUUID(ns sql.NullString) (*uuid.UUID, error) {
	if !ns.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(ns.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
