// Package sqlguard validates generated SQL and screens user input for
// injection patterns before it reaches a prompt.
package sqlguard

import (
	"errors"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
)

var (
	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")
)

// ValidationResult contains the normalized SQL and any validation errors.
type ValidationResult struct {
	NormalizedSQL string
	Error         error
}

// ExtractSQL strips markdown code fences from a complete generation
// response. If the response contains a fenced block the block's content
// is returned; otherwise the trimmed response is returned as-is.
func ExtractSQL(response string) string {
	response = strings.TrimSpace(response)

	start := strings.Index(response, "```")
	if start < 0 {
		return response
	}

	body := response[start+3:]
	// Drop the language tag line (e.g. "sql") if present.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], " \t") && len(body[:nl]) <= 16 {
		body = body[nl+1:]
	}

	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}

	return strings.TrimSpace(body)
}

// ValidateAndNormalize checks SQL for multiple statements and strips the
// trailing semicolon.
//
// The validation order is:
// 1. Strip trailing semicolon and whitespace (normalize)
// 2. Check for multiple statements (any remaining semicolons outside string literals)
func ValidateAndNormalize(sqlQuery string) ValidationResult {
	sqlQuery = strings.TrimSpace(sqlQuery)

	if sqlQuery == "" {
		return ValidationResult{NormalizedSQL: sqlQuery}
	}

	normalized := stripTrailingSemicolon(sqlQuery)

	if hasSemicolonOutsideStrings(normalized) {
		return ValidationResult{Error: ErrMultipleStatements}
	}

	return ValidationResult{NormalizedSQL: normalized}
}

// InjectionCheckResult contains the result of an injection check on a
// user-supplied value.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Input       string // The value that was checked
}

// CheckUserInput uses libinjection to detect SQL injection patterns in a
// user-supplied string before it is interpolated into a prompt.
//
// Returns nil if no injection is detected.
func CheckUserInput(input string) *InjectionCheckResult {
	isSQLi, fingerprint := libinjection.IsSQLi(input)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
		Input:       input,
	}
}

// hasSemicolonOutsideStrings returns true if the SQL contains any
// semicolon outside of string literals.
func hasSemicolonOutsideStrings(sqlQuery string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sqlQuery {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			// Handle both backslash escape (\') and SQL standard escape ('')
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}

// stripTrailingSemicolon removes a trailing semicolon and any whitespace
// around it.
func stripTrailingSemicolon(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimSuffix(sqlQuery, ";")
		sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	}
	return sqlQuery
}
