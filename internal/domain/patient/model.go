package patient

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patients table. Identity data is owned by Reception;
// corrective edits aside, a record does not change after registration.
type Patient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Age       int       `db:"age" json:"age"`
	Gender    string    `db:"gender" json:"gender"`
	Phone     string    `db:"phone" json:"phone"`
	Address   *string   `db:"address" json:"address,omitempty"`
	IDProof   *string   `db:"id_proof" json:"id_proof,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ValidatePhone checks the registration phone format: digits only, 8-15 long.
func ValidatePhone(phone string) (string, error) {
	cleaned := strings.TrimSpace(phone)
	if cleaned == "" {
		return "", fmt.Errorf("phone is required")
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("phone must contain only digits")
		}
	}
	if len(cleaned) < 8 || len(cleaned) > 15 {
		return "", fmt.Errorf("phone length must be between 8 and 15 digits")
	}
	return cleaned, nil
}
