package email

import "context"

// Subjects holds the per-preset subject lines an instance can override, matching config.EmailSubjects.
type Subjects struct {
	Verify        string
	Delete        string
	PasswordReset string
	UserUpdated   string
}

// Mailer renders and sends the templated notification emails described in the user service, satisfying
// user.Mailer. A zero-value Mailer (no Client) reports Configured() == false, the same "instance has no mailer set
// up" state the original expresses via Emailer(None).
type Mailer struct {
	client   *Client
	subjects Subjects
}

// NewMailer builds a Mailer around client. A nil client means the instance sends no mail.
func NewMailer(client *Client, subjects Subjects) *Mailer {
	return &Mailer{client: client, subjects: subjects}
}

// Configured reports whether this instance can actually send mail.
func (m *Mailer) Configured() bool {
	return m.client != nil
}

func (m *Mailer) SendVerification(ctx context.Context, to, username string, code int) error {
	return m.client.Send(ctx, to, m.subjects.Verify, renderVerify(username, code))
}

func (m *Mailer) SendUserUpdated(ctx context.Context, to, username string, newUsername, newEmail *string, passwordChanged bool) error {
	return m.client.Send(ctx, to, m.subjects.UserUpdated, renderUserUpdated(username, newUsername, newEmail, passwordChanged))
}

func (m *Mailer) SendDeleted(ctx context.Context, to, username string) error {
	return m.client.Send(ctx, to, m.subjects.Delete, renderDelete(username))
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to, username string, code int) error {
	return m.client.Send(ctx, to, m.subjects.PasswordReset, renderPasswordReset(username, code))
}
