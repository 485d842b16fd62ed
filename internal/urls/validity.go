package urls

import (
	"net/url"
	"strconv"
	"time"
)

const sigV4TimeLayout = "20060102T150405Z"

// IsValid reports whether a presigned URL is still usable at now, judged only
// from the expiry parameters embedded in the URL itself. A URL within
// safetyGap of expiring counts as invalid so in-flight consumers don't race
// the deadline. URLs whose expiry cannot be determined are invalid.
//
// Supported families:
//   - legacy GCS signatures: Expires (epoch seconds)
//   - AWS SigV4: X-Amz-Date + X-Amz-Expires (seconds)
//   - GCS V4: X-Goog-Date + X-Goog-Expires (seconds)
func IsValid(rawURL string, now time.Time, safetyGap time.Duration) bool {
	expiry, ok := expiryFromURL(rawURL)
	if !ok {
		return false
	}
	return now.Add(safetyGap).Before(expiry)
}

func expiryFromURL(rawURL string) (time.Time, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return time.Time{}, false
	}
	query := parsed.Query()

	if epoch := query.Get("Expires"); epoch != "" {
		seconds, err := strconv.ParseInt(epoch, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(seconds, 0), true
	}

	if expiry, ok := sigV4Expiry(query, "X-Amz-Date", "X-Amz-Expires"); ok {
		return expiry, true
	}
	if expiry, ok := sigV4Expiry(query, "X-Goog-Date", "X-Goog-Expires"); ok {
		return expiry, true
	}

	return time.Time{}, false
}

func sigV4Expiry(query url.Values, dateParam, expiresParam string) (time.Time, bool) {
	date := query.Get(dateParam)
	expires := query.Get(expiresParam)
	if date == "" || expires == "" {
		return time.Time{}, false
	}
	signedAt, err := time.Parse(sigV4TimeLayout, date)
	if err != nil {
		return time.Time{}, false
	}
	seconds, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return signedAt.Add(time.Duration(seconds) * time.Second), true
}
