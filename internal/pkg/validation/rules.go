// Package validation holds the input formats shared by the service layer.
package validation

import "regexp"

// PasswordMinLength is the minimum accepted length for staff account passwords.
const PasswordMinLength = 8

// CompiledPatterns holds the precompiled formats the services match against.
var CompiledPatterns = struct {
	// Email accepts lowercase addresses with a 2 to 4 letter TLD.
	Email *regexp.Regexp
	// Identifier matches the 9 digit national ID issued by the population
	// registry.
	Identifier *regexp.Regexp
	// Cycle matches a 4 digit academic year.
	Cycle *regexp.Regexp
}{
	Email:      regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,4}$`),
	Identifier: regexp.MustCompile(`^\d{9}$`),
	Cycle:      regexp.MustCompile(`^\d{4}$`),
}
