// Package validation checks bucket names, object names and prefixes before
// they reach a store.
package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	fmerrors "github.com/yarokim83/filemanager/errors"
)

// MaxObjectNameLength is the longest object name accepted, in bytes.
const MaxObjectNameLength = 1024

// ValidateBucketName checks that bucket is DNS-compliant: 3 to 63 characters
// of lowercase letters, digits, dots, hyphens and underscores, starting and
// ending with a letter or digit.
func ValidateBucketName(bucket string) error {
	const op = "validateBucketName"

	if bucket == "" {
		return fmerrors.NewError(op, fmerrors.ErrInvalidInput).
			WithMessage("bucket name cannot be empty")
	}
	if len(bucket) < 3 || len(bucket) > 63 {
		return fmerrors.NewObjectError(op, bucket, fmerrors.ErrInvalidInput).
			WithMessage("bucket name must be between 3 and 63 characters long")
	}
	for _, char := range bucket {
		if !isValidBucketChar(char) {
			return fmerrors.NewObjectError(op, bucket, fmerrors.ErrInvalidInput).
				WithMessage("bucket name can only contain lowercase letters, numbers, dots, hyphens and underscores")
		}
	}
	if !isAlnum(rune(bucket[0])) || !isAlnum(rune(bucket[len(bucket)-1])) {
		return fmerrors.NewObjectError(op, bucket, fmerrors.ErrInvalidInput).
			WithMessage("bucket name must start and end with a letter or number")
	}
	return nil
}

// ValidateObjectName checks a full object name.
func ValidateObjectName(name string) error {
	const op = "validateObjectName"

	if name == "" {
		return fmerrors.NewError(op, fmerrors.ErrInvalidInput).
			WithMessage("object name cannot be empty")
	}
	if len(name) > MaxObjectNameLength {
		return fmerrors.NewError(op, fmerrors.ErrInvalidInput).
			WithKey(truncate(name, 64) + "...").
			WithMessage("object name cannot exceed 1024 bytes")
	}
	if strings.HasPrefix(name, "/") {
		return fmerrors.NewObjectError(op, name, fmerrors.ErrInvalidInput).
			WithMessage("object name cannot start with a slash")
	}
	if hasTraversal(name) {
		return fmerrors.NewObjectError(op, name, fmerrors.ErrInvalidInput).
			WithMessage("object name cannot contain '.' or '..' segments")
	}
	if hasControlCharacters(name) {
		return fmerrors.NewObjectError(op, name, fmerrors.ErrInvalidInput).
			WithMessage("object name cannot contain control characters")
	}
	return nil
}

// ValidatePrefix checks a folder prefix. A trailing slash is optional, but
// the prefix must name at least one segment.
func ValidatePrefix(prefix string) error {
	if strings.Trim(prefix, "/") == "" {
		return fmerrors.NewObjectError("validatePrefix", prefix, fmerrors.ErrInvalidInput).
			WithMessage("prefix cannot be empty")
	}
	return ValidateObjectName(strings.TrimRight(prefix, "/"))
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isAlnum(char rune) bool {
	return (char >= '0' && char <= '9') || (char >= 'a' && char <= 'z')
}

func isValidBucketChar(char rune) bool {
	return isAlnum(char) || char == '.' || char == '-' || char == '_'
}

// hasTraversal reports "." or ".." path segments. Dots inside a segment,
// such as "a..b.txt", are allowed.
func hasTraversal(name string) bool {
	for _, seg := range strings.Split(name, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

func hasControlCharacters(name string) bool {
	for _, char := range name {
		if unicode.IsControl(char) {
			return true
		}
	}
	return false
}
