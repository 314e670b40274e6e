package email

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
)

//go:embed templates/verify.html
var verifyTemplate string

//go:embed templates/delete.html
var deleteTemplate string

//go:embed templates/password-reset.html
var passwordResetTemplate string

//go:embed templates/user-updated.html
var userUpdatedTemplate string

// formatCode renders a verification/reset code in groups of three digits counted from the right, so a 6-digit code
// reads "123 456" and 1234 reads "1 234".
func formatCode(code int) string {
	digits := strconv.Itoa(code)
	head := len(digits) % 3
	if head == 0 {
		head = 3
	}
	chunks := []string{digits[:head]}
	for digits = digits[head:]; len(digits) > 0; digits = digits[3:] {
		chunks = append(chunks, digits[:3])
	}
	return strings.Join(chunks, " ")
}

func render(template string, replacer *strings.Replacer) string {
	return replacer.Replace(template)
}

// renderVerify fills the verification template.
func renderVerify(username string, code int) string {
	return render(verifyTemplate, strings.NewReplacer("${USERNAME}", username, "${CODE}", formatCode(code)))
}

// renderDelete fills the account-deletion template.
func renderDelete(username string) string {
	return render(deleteTemplate, strings.NewReplacer("${USERNAME}", username))
}

// renderPasswordReset fills the password-reset template.
func renderPasswordReset(username string, code int) string {
	return render(passwordResetTemplate, strings.NewReplacer("${USERNAME}", username, "${CODE}", formatCode(code)))
}

// renderUserUpdated fills the account-update template, listing only the fields that actually changed, matching the
// original's line-per-change ${CHANGES} block.
func renderUserUpdated(username string, newUsername, newEmail *string, passwordChanged bool) string {
	var changes []string
	if newUsername != nil {
		changes = append(changes, fmt.Sprintf("Your username has changed from %s to %s", username, *newUsername))
	}
	if newEmail != nil {
		changes = append(changes, fmt.Sprintf("Your email has changed to %s", *newEmail))
	}
	if passwordChanged {
		changes = append(changes, "Your password has been updated")
	}
	replacer := strings.NewReplacer("${USERNAME}", username, "${CHANGES}", strings.Join(changes, "\n"))
	return render(userUpdatedTemplate, replacer)
}
