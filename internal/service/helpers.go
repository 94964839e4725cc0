package service

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

func GetExpiresAt(expiresIn int) time.Time {
	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}

func nanoID() string {
	return gonanoid.Must()
}
