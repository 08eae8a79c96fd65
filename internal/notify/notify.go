// Package notify reports a failed run to the log, the console and optionally
// the operator's mailbox.
package notify

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"runtime/debug"
	"strings"

	"pricehist/internal/logger"
)

const (
	Subject     = "Price Error"
	defaultPort = "25"
)

// NotificationError reports that the failure mail itself could not be sent.
type NotificationError struct {
	Host string
	Err  error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify via %s: %v", e.Host, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

type Mailer interface {
	Send(subject, body string) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends plain text mail from and to the same address.
type SMTPMailer struct {
	Host     string // host or host:port, port 25 by default
	Username string
	Password string
	Address  string

	send sendFunc
}

func NewSMTPMailer(host, username, password, address string) *SMTPMailer {
	return &SMTPMailer{
		Host:     host,
		Username: username,
		Password: password,
		Address:  address,
		send:     smtp.SendMail,
	}
}

func (m *SMTPMailer) Send(subject, body string) error {
	addr := m.Host
	hostname, _, err := net.SplitHostPort(addr)
	if err != nil {
		hostname = addr
		addr = net.JoinHostPort(addr, defaultPort)
	}

	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, hostname)
	}

	send := m.send
	if send == nil {
		send = smtp.SendMail
	}
	msg := Message(m.Address, subject, body)
	if err := send(addr, auth, m.Address, []string{m.Address}, msg); err != nil {
		return &NotificationError{Host: m.Host, Err: err}
	}
	return nil
}

// Message renders the mail with CRLF line endings as net/smtp expects.
func Message(address, subject, body string) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: Me <%s>\r\n", address)
	fmt.Fprintf(&sb, "To: Me <%s>\r\n", address)
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString("There is error in price\r\n\r\n")
	sb.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(sb.String())
}

// Trace renders the error, every wrapped cause and the current goroutine stack.
func Trace(err error) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "error: %v\n", err)
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		fmt.Fprintf(&sb, "  caused by %T: %v\n", cause, cause)
	}
	sb.WriteString("\n")
	sb.Write(debug.Stack())
	return sb.String()
}

// Reporter is the top level failure handler of a run.
type Reporter struct {
	Logger *logger.Logger
	Mailer Mailer // nil disables mail
	Out    io.Writer
}

// Report logs err, prints its trace and mails it at most once. A mail failure is
// logged and returned but never reported again.
func (r *Reporter) Report(err error) error {
	if err == nil {
		return nil
	}
	r.Logger.Error("run failed", "error", err)

	trace := Trace(err)
	if r.Out != nil {
		fmt.Fprintln(r.Out, trace)
	}
	if r.Mailer == nil {
		return nil
	}

	sendErr := r.Mailer.Send(Subject, trace)
	if sendErr == nil {
		r.Logger.Info("failure notification sent")
		return nil
	}

	var ne *NotificationError
	if !errors.As(sendErr, &ne) {
		ne = &NotificationError{Err: sendErr}
	}
	r.Logger.Error("failure notification failed", "error", ne)
	return ne
}
