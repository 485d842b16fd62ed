package enums

import "fmt"

// URLType distinguishes presigned upload URLs from download URLs.
type URLType string

const (
	URLTypeUpload   URLType = "upload"
	URLTypeDownload URLType = "download"
)

var validURLTypes = []URLType{URLTypeUpload, URLTypeDownload}

// String returns the literal string for the type.
func (t URLType) String() string {
	return string(t)
}

// IsValid reports whether the type is known.
func (t URLType) IsValid() bool {
	for _, candidate := range validURLTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseURLType converts raw input into a URLType.
func ParseURLType(value string) (URLType, error) {
	for _, candidate := range validURLTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid url type %q", value)
}
