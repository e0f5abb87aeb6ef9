package types

import "time"

type Created struct {
	ID        string    `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type Count struct {
	Count int64 `json:"count"`
}
