package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/buildtrack/patchhub/common/logger"
	"github.com/buildtrack/patchhub/common/mail"
	"github.com/buildtrack/patchhub/common/models"
	"github.com/buildtrack/patchhub/common/patchutil"
	"github.com/buildtrack/patchhub/common/queue"
)

// TopicMail is the queue topic carrying composed notification messages
const TopicMail = "notify.mail"

// MailMessage is a composed notification queued for delivery
type MailMessage struct {
	ID      string   `json:"id"`
	To      []string `json:"to"`
	CC      []string `json:"cc,omitempty"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	HTML    bool     `json:"html,omitempty"`
}

// NotifyService composes workflow mail and queues it for background
// delivery. Composition and delivery never fail the workflow: a status
// change is already persisted by the time a notification fires.
type NotifyService struct {
	q       queue.Queue
	mailer  mail.Mailer
	users   Directory
	baseURL string
	log     *logger.Logger
}

// NewNotifyService creates a notification service
func NewNotifyService(q queue.Queue, mailer mail.Mailer, users Directory, baseURL string, log *logger.Logger) *NotifyService {
	return &NotifyService{
		q:       q,
		mailer:  mailer,
		users:   users,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

// StartDispatcher begins consuming queued messages and handing them to
// the mailer. Runs until the context is canceled.
func (s *NotifyService) StartDispatcher(ctx context.Context) error {
	return s.q.Subscribe(ctx, TopicMail, func(ctx context.Context, key string, value []byte) error {
		var msg MailMessage
		if err := json.Unmarshal(value, &msg); err != nil {
			return fmt.Errorf("decode mail message %s: %w", key, err)
		}
		if msg.HTML {
			return s.mailer.SendHTML(msg.To, msg.CC, msg.Subject, msg.Body)
		}
		return s.mailer.SendPlain(msg.To, msg.CC, msg.Subject, msg.Body)
	})
}

// StatusChanged notifies the requestor, subscribers, and (while in
// APPROVAL) the matched approver groups of a status change
func (s *NotifyService) StatusChanged(ctx context.Context, patch *models.Patch, groups []models.ApproverGroup) {
	to := s.recipients(ctx, patch, groups)
	if len(to) == 0 {
		return
	}

	s.publish(ctx, MailMessage{
		To:      to,
		CC:      patch.CCList,
		Subject: StatusSubject(patch),
		Body:    statusBody(patch, s.baseURL),
	})
}

// OwnerAssigned notifies a user they now own the patch
func (s *NotifyService) OwnerAssigned(ctx context.Context, patch *models.Patch, owner *models.PatchOwner) {
	if owner.User.Email == "" {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You have been assigned service patch %s (#%d).\n\n", patch.Name, patch.ID)
	writeSummary(&b, patch)
	fmt.Fprintf(&b, "Priority: %s\n", owner.Priority)
	if owner.Deadline != nil {
		fmt.Fprintf(&b, "Deadline: %s\n", owner.Deadline.Format("2006-01-02"))
	}
	if owner.Comment != "" {
		fmt.Fprintf(&b, "\n%s\n", owner.Comment)
	}
	fmt.Fprintf(&b, "\n%s\n", patchLink(s.baseURL, patch.ID))

	s.publish(ctx, MailMessage{
		To:      []string{owner.User.Email},
		Subject: fmt.Sprintf("Service Patch assigned: %s %s", customerName(patch), patch.Name),
		Body:    b.String(),
	})
}

// ReviewRequested asks the requestor to review unit and acceptance test
// results for a completed build
func (s *NotifyService) ReviewRequested(ctx context.Context, patch *models.Patch) {
	to := s.recipients(ctx, patch, nil)
	if len(to) == 0 {
		return
	}

	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<p>The build for service patch <b>%s</b> is complete.</p>", patch.Name)
	fmt.Fprintf(&b, "<p>Please review the unit and acceptance test results before release.</p>")
	fmt.Fprintf(&b, `<p><a href="%s">Patch request #%d</a></p>`, patchLink(s.baseURL, patch.ID), patch.ID)
	b.WriteString("</body></html>")

	subject := fmt.Sprintf("%s %s %s | Review UT/ACT Results | Patch ID #%d",
		customerName(patch), shortVersion(patch), patch.Name, patch.ID)

	s.publish(ctx, MailMessage{
		To:      to,
		CC:      patch.CCList,
		Subject: subject,
		Body:    b.String(),
		HTML:    true,
	})
}

// Released announces the finished patch and its download location
func (s *NotifyService) Released(ctx context.Context, patch *models.Patch) {
	to := s.recipients(ctx, patch, nil)
	if len(to) == 0 {
		return
	}

	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<p>Service patch <b>%s</b> for %s has been released.</p>",
		patch.Name, customerName(patch))
	if patch.PatchBuild != nil && patch.PatchBuild.DownloadURI != "" {
		fmt.Fprintf(&b, `<p>Download: <a href="%s">%s</a></p>`,
			patch.PatchBuild.DownloadURI, patch.PatchBuild.DownloadURI)
	}
	fmt.Fprintf(&b, `<p><a href="%s">Patch request #%d</a></p>`, patchLink(s.baseURL, patch.ID), patch.ID)
	b.WriteString("</body></html>")

	s.publish(ctx, MailMessage{
		To:      to,
		CC:      patch.CCList,
		Subject: fmt.Sprintf("%s %s %s complete", customerName(patch), shortVersion(patch), patch.Name),
		Body:    b.String(),
		HTML:    true,
	})
}

// publish queues a message for delivery, logging rather than failing
// when the queue rejects it
func (s *NotifyService) publish(ctx context.Context, msg MailMessage) {
	msg.ID = uuid.NewString()

	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Warn("failed to encode mail message", "subject", msg.Subject, "error", err)
		return
	}
	if err := s.q.Publish(ctx, TopicMail, msg.ID, data); err != nil {
		s.log.Warn("failed to queue mail message", "subject", msg.Subject, "error", err)
	}
}

// recipients collects requestor, subscriber, and approver addresses,
// deduplicated in first-seen order
func (s *NotifyService) recipients(ctx context.Context, patch *models.Patch, groups []models.ApproverGroup) []string {
	seen := make(map[string]bool)
	var to []string
	add := func(email string) {
		email = strings.TrimSpace(email)
		if email == "" || seen[email] {
			return
		}
		seen[email] = true
		to = append(to, email)
	}

	if patch.Requestor != nil {
		add(patch.Requestor.Email)
	}
	for i := range patch.Notifications {
		if patch.Notifications[i].WantsStatus(patch.Status) {
			add(patch.Notifications[i].Email)
		}
	}
	for _, group := range groups {
		members, err := s.users.GroupMembers(ctx, group.Group)
		if err != nil {
			s.log.Warn("failed to resolve group members", "group", group.Group, "error", err)
			continue
		}
		for i := range members {
			add(members[i].Email)
		}
	}

	return to
}

// StatusSubject renders the subject line for a status-change message
func StatusSubject(patch *models.Patch) string {
	return fmt.Sprintf("Service Patch %s: %s %s %s",
		patch.Status, customerName(patch), shortVersion(patch), patch.Name)
}

// statusBody renders the plain-text body: request summary plus the fix
// list, with fixes introduced by this patch marked "(new)"
func statusBody(patch *models.Patch, baseURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Service patch %s is now %s.\n\n", patch.Name, patch.Status)
	writeSummary(&b, patch)

	if fixes := patch.Fixes(); len(fixes) > 0 {
		b.WriteString("\nFixes:\n")
		for _, fix := range fixes {
			marker := ""
			if fix.Origin == nil || fix.Origin.ID == patch.ID {
				marker = " (new)"
			}
			fmt.Fprintf(&b, "  %d%s", fix.BugID, marker)
			if fix.Description != "" {
				fmt.Fprintf(&b, " - %s", fix.Description)
			}
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "\n%s\n", patchLink(baseURL, patch.ID))
	return b.String()
}

func writeSummary(b *strings.Builder, patch *models.Patch) {
	fmt.Fprintf(b, "Customer: %s\n", customerName(patch))
	if patch.Environment != nil {
		fmt.Fprintf(b, "Environment: %s\n", patch.Environment.Name)
	}
	if patch.SourceBuild != nil {
		fmt.Fprintf(b, "Build: %s\n", patch.SourceBuild.Version)
	}
	if patch.Requestor != nil {
		fmt.Fprintf(b, "Requested by: %s\n", patch.Requestor.Name)
	}
}

func patchLink(baseURL string, patchID int) string {
	return fmt.Sprintf("%s/patches/%d", baseURL, patchID)
}

func customerName(patch *models.Patch) string {
	if patch.Customer == nil {
		return ""
	}
	return patch.Customer.Name
}

func shortVersion(patch *models.Patch) string {
	if patch.SourceBuild == nil {
		return ""
	}
	return patchutil.ShortVersion(patch.SourceBuild.Version)
}
