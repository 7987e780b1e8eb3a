package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// LocalizedText maps a language code to a translation, stored as JSONB.
type LocalizedText map[string]string

// Resolve picks the translation for lang, falling back to English and then to
// any available language so a missing translation never renders empty.
func (t LocalizedText) Resolve(lang string) string {
	if v, ok := t[lang]; ok && v != "" {
		return v
	}
	if v, ok := t["en"]; ok && v != "" {
		return v
	}
	for _, v := range t {
		if v != "" {
			return v
		}
	}
	return ""
}

func (t LocalizedText) Value() (driver.Value, error) {
	if t == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(t)
}

func (t *LocalizedText) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = LocalizedText{}
		return nil
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("cannot scan %T into LocalizedText", src)
	}
}

type MenuItem struct {
	ID          int64         `json:"id"`
	Name        LocalizedText `json:"name"`
	Description LocalizedText `json:"description,omitempty"`
	Price       int64         `json:"price"`
	Category    string        `json:"category,omitempty"`
	DietaryTags []string      `json:"dietaryTags,omitempty"`
	Available   bool          `json:"available"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// MenuRepository is the read-only surface the order and metrics subsystems
// need from the menu store. Menu CRUD lives elsewhere.
type MenuRepository interface {
	GetItemsByIDs(ids []int64) (map[int64]MenuItem, error)
	CountItems() (int64, error)
	DietaryTagCounts() (map[string]int64, error)
}
