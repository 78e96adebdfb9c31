package model

import "time"

// AdmissionLease marks the admission gate as held by one process. Leases
// expire on their own so a crashed holder cannot block admissions forever.
type AdmissionLease struct {
	ID        string    `bson:"_id" json:"id"`
	Holder    string    `bson:"holder" json:"holder"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
