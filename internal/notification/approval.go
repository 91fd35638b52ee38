package notification

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/localtv/localtv/internal/metrics"
)

type Mailer interface {
	SendPlain(ctx context.Context, toEmail, subject, body string) error
}

// PreferenceChecker is satisfied by *Preferences.
type PreferenceChecker interface {
	ShouldSend(ctx context.Context, userID, noticeType, medium string) (bool, error)
}

// ApprovedVideo carries what the approval email needs about a video that
// just became active.
type ApprovedVideo struct {
	ID          string
	Name        string
	Description string
	SiteName    string
	OwnerID     string
	OwnerName   string
	OwnerEmail  string
}

var approvalBody = template.Must(template.New("approval").Parse(
	`Hi {{if .OwnerName}}{{.OwnerName}}{{else}}there{{end}},

Your video "{{.Name}}" has been approved by the administrators of {{.SiteName}} and is now live:

{{.WatchURL}}
{{if .Description}}
{{.Description}}
{{end}}
You received this email because you submitted the video. You can turn these
emails off in your notification preferences.
`))

type ApprovalNotifier struct {
	prefs   PreferenceChecker
	mailer  Mailer
	baseURL string
}

func NewApprovalNotifier(prefs PreferenceChecker, mailer Mailer, baseURL string) *ApprovalNotifier {
	return &ApprovalNotifier{
		prefs:   prefs,
		mailer:  mailer,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func ApprovalSubject(siteName, videoName string) string {
	return fmt.Sprintf(`[%s] "%s" was approved!`, siteName, videoName)
}

// NotifyVideoApproved emails the owner of v when their preference allows it.
// It returns nil without sending when the owner has no email address.
func (n *ApprovalNotifier) NotifyVideoApproved(ctx context.Context, v ApprovedVideo) error {
	if v.OwnerID == "" || v.OwnerEmail == "" {
		return nil
	}

	send, err := n.prefs.ShouldSend(ctx, v.OwnerID, NoticeVideoApproved, MediumEmail)
	if err != nil {
		metrics.ApprovalEmails.WithLabelValues("error").Inc()
		return fmt.Errorf("check preference: %w", err)
	}
	if !send {
		metrics.ApprovalEmails.WithLabelValues("opted_out").Inc()
		return nil
	}

	var body bytes.Buffer
	if err := approvalBody.Execute(&body, struct {
		ApprovedVideo
		WatchURL string
	}{v, n.baseURL + "/video/" + v.ID}); err != nil {
		metrics.ApprovalEmails.WithLabelValues("error").Inc()
		return fmt.Errorf("render approval email: %w", err)
	}

	if err := n.mailer.SendPlain(ctx, v.OwnerEmail, ApprovalSubject(v.SiteName, v.Name), body.String()); err != nil {
		metrics.ApprovalEmails.WithLabelValues("error").Inc()
		return fmt.Errorf("send approval email: %w", err)
	}

	metrics.ApprovalEmails.WithLabelValues("sent").Inc()
	slog.Info("approval email sent", "video_id", v.ID, "to", v.OwnerEmail)
	return nil
}
