package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// ExpenseCursor is an opaque keyset position for the admin listing; seq is
// the storage insertion sequence of the last row already returned.
type ExpenseCursor struct {
	Seq int64 `json:"seq"`
}

func EncodeExpenseCursor(seq int64) (string, error) {
	b, err := json.Marshal(ExpenseCursor{Seq: seq})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeExpenseCursor(cursor string) (ExpenseCursor, error) {
	if cursor == "" {
		return ExpenseCursor{}, errors.New("empty cursor")
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return ExpenseCursor{}, err
	}

	var c ExpenseCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return ExpenseCursor{}, err
	}
	if c.Seq <= 0 {
		return ExpenseCursor{}, errors.New("invalid cursor payload")
	}
	return c, nil
}
