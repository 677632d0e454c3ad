package auth

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

func newUserID(now time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
