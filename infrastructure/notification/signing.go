package notification

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Signature headers set on signed deliveries.
const (
	HeaderSignature = "X-Goap-Signature"
	HeaderTimestamp = "X-Goap-Timestamp"
)

// Sign returns "sha256=<hex hmac>" of "<unix timestamp>.<body>". Binding the
// timestamp into the digest lets receivers reject replayed deliveries.
func Sign(body []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", at.Unix())
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// SignedHeaders returns the headers of a signed delivery.
func SignedHeaders(body []byte, secret string, at time.Time) map[string]string {
	return map[string]string{
		HeaderSignature: Sign(body, secret, at),
		HeaderTimestamp: strconv.FormatInt(at.Unix(), 10),
	}
}

// Verify checks a delivery signature. The timestamp must lie within
// tolerance of now.
func Verify(body []byte, secret, signature, timestamp string, tolerance time.Duration, now time.Time) bool {
	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	at := time.Unix(unix, 0)
	if at.Before(now.Add(-tolerance)) || at.After(now.Add(tolerance)) {
		return false
	}
	return hmac.Equal([]byte(Sign(body, secret, at)), []byte(signature))
}
