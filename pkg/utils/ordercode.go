package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateUUID returns a new random uuid string.
func GenerateUUID() string {
	return uuid.New().String()
}

// GenerateOrderCode builds the human-readable order identifier, e.g.
// "TRD-20260901-7F3A2B". Uniqueness comes from the uuid fragment; the
// date prefix exists for support staff.
func GenerateOrderCode(now time.Time) string {
	frag := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("TRD-%s-%s", now.Format("20060102"), frag)
}
