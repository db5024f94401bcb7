// ABOUTME: SMTP collaborator notifications using go-mail. Dial-per-send for sporadic traffic.
// ABOUTME: Implements collab.Notifier; invoked post-commit, failures are the caller's to log.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/pdekraker-epa/ckanext-collaborators/internal/collab"
)

// SMTPConfig holds SMTP connection parameters sourced from global env vars.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
	TLS      bool
}

// Recipients resolves the email addresses to notify for a grant change.
// User principals map to one address; organization principals to the
// addresses of the organization's admins.
type Recipients interface {
	AddressesFor(ctx context.Context, g collab.Grant) ([]string, error)
}

// EmailNotifier sends a plain-text email per grant change. It dials per send;
// grant changes are far too sporadic to keep an SMTP connection open.
type EmailNotifier struct {
	cfg        SMTPConfig
	recipients Recipients
}

// NewEmailNotifier creates an EmailNotifier.
func NewEmailNotifier(cfg SMTPConfig, recipients Recipients) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, recipients: recipients}
}

// CollaboratorAdded notifies the principal that they were added to a dataset.
func (n *EmailNotifier) CollaboratorAdded(ctx context.Context, g collab.Grant) error {
	subject := fmt.Sprintf("You have been added as a collaborator on dataset %s", g.DatasetID)
	body := fmt.Sprintf(
		"You have been granted %s access to dataset %s.\n", g.Capacity, g.DatasetID)
	return n.send(ctx, g, subject, body)
}

// CollaboratorRemoved notifies the principal that they were removed.
func (n *EmailNotifier) CollaboratorRemoved(ctx context.Context, g collab.Grant) error {
	subject := fmt.Sprintf("You have been removed as a collaborator on dataset %s", g.DatasetID)
	body := fmt.Sprintf(
		"Your %s access to dataset %s has been revoked.\n", g.Capacity, g.DatasetID)
	return n.send(ctx, g, subject, body)
}

func (n *EmailNotifier) send(ctx context.Context, g collab.Grant, subject, body string) error {
	recipients, err := n.recipients.AddressesFor(ctx, g)
	if err != nil {
		return fmt.Errorf("email send: resolve recipients: %w", err)
	}
	if len(recipients) == 0 {
		return nil
	}

	// Strip CR/LF from the subject to prevent header injection.
	subject = strings.NewReplacer("\r", "", "\n", "").Replace(subject)

	m := mail.NewMsg()
	if err := m.FromFormat("Dataset Collaborators", n.cfg.From); err != nil {
		return fmt.Errorf("email send: set from: %w", err)
	}
	if err := m.Bcc(recipients...); err != nil {
		return fmt.Errorf("email send: set bcc: %w", err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(n.cfg.Port),
	}
	if n.cfg.Username != "" {
		opts = append(opts, mail.WithSMTPAuth(mail.SMTPAuthPlain))
		opts = append(opts, mail.WithUsername(n.cfg.Username))
		opts = append(opts, mail.WithPassword(n.cfg.Password))
	}
	if n.cfg.TLS {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}

	c, err := mail.NewClient(n.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("email send: create client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("email send: %w", err)
	}
	return nil
}
