package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"taskhive/config"
	"taskhive/messaging"
)

// NotificationWorker drains the notification queues and turns events into
// outbound email. Delivery failures bubble back to the consumer, which
// retries and finally dead-letters.
type NotificationWorker struct {
	Consumer *messaging.Consumer
	Mailer   Mailer
	Logger   *log.Logger
}

func NewNotificationWorker(consumer *messaging.Consumer, mailer Mailer, logger *log.Logger) *NotificationWorker {
	return &NotificationWorker{
		Consumer: consumer,
		Mailer:   mailer,
		Logger:   logger,
	}
}

// Start subscribes every notification queue. It returns on the first
// subscription error; handlers keep running until ctx is cancelled.
func (nw *NotificationWorker) Start(ctx context.Context) error {
	topology := config.RabbitTopology()

	subscriptions := map[string]messaging.Handler{
		config.InviteKey:             nw.onUserInvited,
		config.MemberAddedKey:        nw.onEmailEvent,
		config.MemberRemovedKey:      nw.onEmailEvent,
		config.RoleUpdatedKey:        nw.onEmailEvent,
		config.ProjectCreatedKey:     nw.onEmailRequest,
		config.ProjectMemberAddedKey: nw.onEmailRequest,
		config.NewLeadAssignedKey:    nw.onEmailRequest,
	}

	for key, handler := range subscriptions {
		binding, ok := topology[key]
		if !ok {
			return fmt.Errorf("no queue bound for routing key %q", key)
		}
		if err := nw.Consumer.Listen(ctx, binding.Queue, handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", binding.Queue, err)
		}
		nw.Logger.Printf("Listening on %s", binding.Queue)
	}

	nw.Logger.Println("Notification worker started")
	return nil
}

func (nw *NotificationWorker) onUserInvited(body []byte) error {
	var event messaging.UserInvitedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode invite event: %w", err)
	}

	acceptLink := config.AppConfig.FrontendURL + "/signup/invite?token=" + event.InviteToken
	subject := "You have been invited to join " + event.OrgName
	htmlBody := fmt.Sprintf(
		`<p>Hello,</p>
<p>You have been invited to join <strong>%s</strong> as %s.</p>
<p><a href="%s">Accept the invitation</a></p>`,
		event.OrgName, event.Role, acceptLink)

	return nw.Mailer.Send(event.Email, subject, htmlBody)
}

func (nw *NotificationWorker) onEmailEvent(body []byte) error {
	var event messaging.EmailEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode email event: %w", err)
	}
	htmlBody := "<p>" + event.Message + "</p>"
	return nw.Mailer.Send(event.Email, event.Subject, htmlBody)
}

func (nw *NotificationWorker) onEmailRequest(body []byte) error {
	var event messaging.EmailRequest
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode email request: %w", err)
	}
	htmlBody, err := RenderTemplate(event.TemplateCode, event.Variables)
	if err != nil {
		return err
	}
	return nw.Mailer.Send(event.ToEmail, event.Subject, htmlBody)
}
