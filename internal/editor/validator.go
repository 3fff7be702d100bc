package editor

import (
	"fmt"
	"regexp"
	"strings"

	"latex-refiner/internal/layout"
	"latex-refiner/internal/logger"
	"latex-refiner/internal/types"
)

// ValidationResult contains the result of LaTeX validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// ValidationError is a single finding. Line and Column are 1-based; zero
// means the finding applies to the whole document.
type ValidationError struct {
	Line    int
	Column  int
	Message string
	Type    string // "syntax", "structure", "encoding"
}

func (e ValidationError) String() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d, col %d: %s [%s]", e.Line, e.Column, e.Message, e.Type)
	}
	return fmt.Sprintf("%s [%s]", e.Message, e.Type)
}

// Err returns nil for a valid result and a VALIDATION_ERROR otherwise.
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.String())
	}
	return types.NewAppErrorWithDetails(types.ErrValidation, "document failed structural validation", strings.Join(msgs, "; "), nil)
}

var envPattern = regexp.MustCompile(`\\(begin|end)\{([^}]+)\}`)

// Validator checks chapter structure after refinement.
type Validator struct{}

// NewValidator creates a new Validator
func NewValidator() *Validator {
	return &Validator{}
}

// Check validates brace balance and environment pairing.
func (v *Validator) Check(doc layout.Document) *ValidationResult {
	result := &ValidationResult{}

	v.checkBraceBalance(doc, result)
	v.checkEnvironments(doc, result)
	v.checkCommonErrors(doc, result)

	result.Valid = len(result.Errors) == 0

	logger.Debug("validation completed",
		logger.Bool("valid", result.Valid),
		logger.Int("errorCount", len(result.Errors)),
		logger.Int("warningCount", len(result.Warnings)))

	return result
}

// ValidateFile reads and checks a chapter on disk.
func (v *Validator) ValidateFile(path string) (*ValidationResult, error) {
	logger.Debug("validating LaTeX file", logger.String("path", path))
	src, err := ReadSource(path)
	if err != nil {
		return nil, err
	}
	return v.Check(src.Document), nil
}

// codeOnly strips an unescaped % comment.
func codeOnly(line string) string {
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '%':
			return line[:i]
		}
	}
	return line
}

type position struct{ line, col int }

// checkBraceBalance reports stray closing braces where they occur and
// unclosed opening braces at the place they were opened.
func (v *Validator) checkBraceBalance(doc layout.Document, result *ValidationResult) {
	var open []position
	for n, raw := range doc {
		line := codeOnly(raw)
		for i := 0; i < len(line); i++ {
			switch line[i] {
			case '\\':
				i++
			case '{':
				open = append(open, position{n + 1, i + 1})
			case '}':
				if len(open) == 0 {
					result.Errors = append(result.Errors, ValidationError{
						Line:    n + 1,
						Column:  i + 1,
						Message: "Unexpected closing brace '}'",
						Type:    "syntax",
					})
					continue
				}
				open = open[:len(open)-1]
			}
		}
	}

	if len(open) > 0 {
		result.Errors = append(result.Errors, ValidationError{
			Line:    open[0].line,
			Column:  open[0].col,
			Message: fmt.Sprintf("Unbalanced braces: %d left open", len(open)),
			Type:    "syntax",
		})
	}
}

// checkEnvironments checks if LaTeX environments are properly closed
func (v *Validator) checkEnvironments(doc layout.Document, result *ValidationResult) {
	type env struct {
		name string
		line int
	}
	var stack []env

	for n, raw := range doc {
		line := codeOnly(raw)
		for _, match := range envPattern.FindAllStringSubmatchIndex(line, -1) {
			cmd := line[match[2]:match[3]]
			name := line[match[4]:match[5]]

			if cmd == "begin" {
				stack = append(stack, env{name, n + 1})
				continue
			}
			if len(stack) == 0 {
				result.Errors = append(result.Errors, ValidationError{
					Line:    n + 1,
					Column:  match[0] + 1,
					Message: fmt.Sprintf("Unexpected \\end{%s} without matching \\begin", name),
					Type:    "structure",
				})
				continue
			}
			last := stack[len(stack)-1]
			if last.name != name {
				result.Errors = append(result.Errors, ValidationError{
					Line:    n + 1,
					Column:  match[0] + 1,
					Message: fmt.Sprintf("Mismatched environment: \\begin{%s} (line %d) ... \\end{%s}", last.name, last.line, name),
					Type:    "structure",
				})
			}
			stack = stack[:len(stack)-1]
		}
	}

	for _, e := range stack {
		result.Errors = append(result.Errors, ValidationError{
			Line:    e.line,
			Message: fmt.Sprintf("Unclosed environment %s", e.name),
			Type:    "structure",
		})
	}
}

// checkCommonErrors looks for slips that compile badly but are not
// structural. They only produce warnings.
func (v *Validator) checkCommonErrors(doc layout.Document, result *ValidationResult) {
	for n, raw := range doc {
		line := codeOnly(raw)

		if i := strings.IndexRune(line, '�'); i >= 0 {
			result.Warnings = append(result.Warnings, ValidationError{
				Line:    n + 1,
				Column:  i + 1,
				Message: "Replacement character found (possible encoding damage)",
				Type:    "encoding",
			})
		}

		if unescapedCount(line, '$')%2 != 0 {
			result.Warnings = append(result.Warnings, ValidationError{
				Line:    n + 1,
				Message: "Odd number of $ signs (possible unclosed math mode)",
				Type:    "syntax",
			})
		}

		if gluedClearpage.MatchString(line) {
			result.Warnings = append(result.Warnings, ValidationError{
				Line:    n + 1,
				Column:  gluedClearpage.FindStringIndex(line)[0] + 1,
				Message: "\\clearpage runs into the following word",
				Type:    "syntax",
			})
		}
	}
}

var gluedClearpage = regexp.MustCompile(`\\clearpage[A-Za-z]`)

func unescapedCount(line string, ch byte) int {
	n := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case ch:
			n++
		}
	}
	return n
}

// FormatReport renders a result the way the CLI prints it.
func FormatReport(path string, result *ValidationResult) string {
	var report strings.Builder
	report.WriteString(fmt.Sprintf("Validation Report for: %s\n", path))
	report.WriteString(strings.Repeat("=", 60) + "\n\n")

	if result.Valid {
		report.WriteString("✓ Validation PASSED\n\n")
	} else {
		report.WriteString("✗ Validation FAILED\n\n")
	}

	if len(result.Errors) > 0 {
		report.WriteString(fmt.Sprintf("Errors (%d):\n", len(result.Errors)))
		for i, e := range result.Errors {
			report.WriteString(fmt.Sprintf("  %d. %s\n", i+1, e))
		}
		report.WriteString("\n")
	}

	if len(result.Warnings) > 0 {
		report.WriteString(fmt.Sprintf("Warnings (%d):\n", len(result.Warnings)))
		for i, w := range result.Warnings {
			report.WriteString(fmt.Sprintf("  %d. %s\n", i+1, w))
		}
		report.WriteString("\n")
	}

	if result.Valid && len(result.Warnings) == 0 {
		report.WriteString("No issues found.\n")
	}

	return report.String()
}
