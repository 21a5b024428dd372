package password

import "strings"

// Symbols is the set of characters that satisfy the symbol requirement.
// It must stay in sync with the backend validator.
const Symbols = "!@#$%^&*()_+-=[]{}|;:'\",.<>/?~`\\"

// MinLength is the minimum accepted password length.
const MinLength = 8

// Requirement messages, one per policy rule. Forms surface these verbatim.
const (
	MsgTooShort = "must be at least 8 characters"
	MsgNoUpper  = "must contain an uppercase letter"
	MsgNoLower  = "must contain a lowercase letter"
	MsgNoDigit  = "must contain a digit"
	MsgNoSymbol = "must contain a special character"
	MsgNoMatch  = "passwords do not match"
	MsgRequired = "password is required"
)

// Check evaluates pw against the policy and returns a message for every
// unmet requirement. A nil result means the password passes.
func Check(pw string) []string {
	if pw == "" {
		return []string{MsgRequired}
	}

	var unmet []string
	if len(pw) < MinLength {
		unmet = append(unmet, MsgTooShort)
	}

	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(Symbols, r):
			symbol = true
		}
	}

	if !upper {
		unmet = append(unmet, MsgNoUpper)
	}
	if !lower {
		unmet = append(unmet, MsgNoLower)
	}
	if !digit {
		unmet = append(unmet, MsgNoDigit)
	}
	if !symbol {
		unmet = append(unmet, MsgNoSymbol)
	}
	return unmet
}

// OK reports whether pw satisfies the full policy.
func OK(pw string) bool {
	return len(Check(pw)) == 0
}

// Match reports whether a confirmation entry equals the password.
func Match(pw, confirm string) bool {
	return pw == confirm
}
