package worker

import (
	"fmt"
	"strings"
)

// Embedded notification templates. Placeholders use the {{key}} form and are
// substituted literally; unknown placeholders are left in place so a missing
// variable is visible in the delivered mail instead of silently blank.
var notificationTemplates = map[string]string{
	"project-created": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .button { display: inline-block; padding: 10px 20px; background: #3498db; color: #fff; text-decoration: none; border-radius: 4px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header"><h2>Project Created</h2></div>
    <div class="content">
        <p>Hi {{recipientName}},</p>
        <p>The project <strong>{{projectName}}</strong> has been created with priority {{priority}}.</p>
        <p>Deadline: {{deadline}}</p>
        <p><a class="button" href="{{dashboardLink}}">Open Dashboard</a></p>
    </div>
    <div class="footer"><p>You received this because you belong to this project.</p></div>
</body>
</html>`,

	"project-member-added": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .button { display: inline-block; padding: 10px 20px; background: #3498db; color: #fff; text-decoration: none; border-radius: 4px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header"><h2>Welcome to {{projectName}}</h2></div>
    <div class="content">
        <p>Hi {{recipientName}},</p>
        <p>You have been added to <strong>{{projectName}}</strong> as {{role}}.</p>
        <p><a class="button" href="{{dashboardLink}}">Open Dashboard</a></p>
    </div>
    <div class="footer"><p>You received this because you belong to this project.</p></div>
</body>
</html>`,

	"new-lead-assigned": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .button { display: inline-block; padding: 10px 20px; background: #3498db; color: #fff; text-decoration: none; border-radius: 4px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header"><h2>You are the new Team Lead</h2></div>
    <div class="content">
        <p>Hi {{recipientName}},</p>
        <p>You are now the team lead of <strong>{{projectName}}</strong> (priority {{priority}}).</p>
        <p><a class="button" href="{{dashboardLink}}">Open Dashboard</a></p>
    </div>
    <div class="footer"><p>You received this because you belong to this project.</p></div>
</body>
</html>`,
}

// RenderTemplate substitutes {{key}} placeholders with the given variables.
// Template codes may carry a ".html" suffix.
func RenderTemplate(code string, vars map[string]string) (string, error) {
	code = strings.TrimSuffix(code, ".html")
	tmpl, ok := notificationTemplates[code]
	if !ok {
		return "", fmt.Errorf("unknown template %q", code)
	}
	out := tmpl
	for key, value := range vars {
		out = strings.ReplaceAll(out, "{{"+key+"}}", value)
	}
	return out, nil
}
