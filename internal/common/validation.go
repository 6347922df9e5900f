package common

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxMessageLength = 4000
	maxEmojiBytes    = 32
)

var handleRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

func ValidateHandle(handle string) error {
	handle = strings.TrimSpace(handle)
	if len(handle) < 3 || len(handle) > 50 {
		return errors.New("handle must be between 3 and 50 characters")
	}

	if !handleRegex.MatchString(handle) {
		return errors.New("handle can only contain letters, numbers, and underscores")
	}

	return nil
}

func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("message content cannot be empty")
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return errors.New("message content is too long")
	}
	return nil
}

// ValidateEmoji accepts a single short token with no whitespace. It does not
// try to decide what is or is not an emoji.
func ValidateEmoji(emoji string) error {
	if emoji == "" {
		return errors.New("emoji cannot be empty")
	}
	if len(emoji) > maxEmojiBytes || !utf8.ValidString(emoji) {
		return errors.New("invalid emoji")
	}
	if strings.IndexFunc(emoji, unicode.IsSpace) >= 0 {
		return errors.New("emoji cannot contain whitespace")
	}
	return nil
}

func ValidateID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New(kind + " ID is required")
	}
	if len(id) > 64 {
		return errors.New(kind + " ID is too long")
	}
	return nil
}
