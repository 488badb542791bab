package customer

import "time"

// Customer is a phone-keyed identity in the directory. The phone is stored
// normalized and doubles as the wallet key.
type Customer struct {
	Phone     string    `db:"phone"`
	FullName  string    `db:"full_name"`
	IsFrozen  bool      `db:"is_frozen"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
