package messaging

// Event payloads carried over the broker. Field names match the JSON the
// notification listeners expect; the payload is owned by the producing domain
// operation until handed to the broker.

// UserInvitedEvent announces a pending invitation to someone without an
// account yet. Routed with config.InviteKey.
type UserInvitedEvent struct {
	Email       string `json:"email"`
	Role        string `json:"role"`
	InviteToken string `json:"inviteToken"`
	OrgID       string `json:"orgId"`
	OrgName     string `json:"orgName"`
}

// EmailEvent is a pre-rendered plain notification: subject and message are
// final. Used for the tenant membership events.
type EmailEvent struct {
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// EmailRequest is a templated notification: the consumer loads TemplateCode
// and substitutes {{key}} placeholders from Variables. Used for project
// events.
type EmailRequest struct {
	ToEmail      string            `json:"toEmail"`
	Subject      string            `json:"subject"`
	TemplateCode string            `json:"templateCode"`
	Variables    map[string]string `json:"variables"`
}
