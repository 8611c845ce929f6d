package routes

import (
	controller "taskhive/controllers"
	"taskhive/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

type Controllers struct {
	Organizations  *controller.OrganizationController
	Members        *controller.MemberController
	Invitations    *controller.InvitationController
	Projects       *controller.ProjectController
	ProjectMembers *controller.ProjectMemberController
}

func SetupRoutes(app *fiber.App, ctl Controllers) {
	api := app.Group("/api", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public invitation endpoints, consumed by the signup flow before the
	// user has a session.
	invitations := api.Group("/invitations")
	invitations.Get("/validate", ctl.Invitations.ValidateToken)
	invitations.Post("/accept", middleware.Protected(), ctl.Invitations.Accept)

	orgs := api.Group("/organizations", middleware.Protected())
	orgs.Post("/", ctl.Organizations.Create)
	orgs.Get("/mine", ctl.Organizations.MyOrganizations)
	orgs.Get("/:orgId", ctl.Organizations.Get)
	orgs.Get("/:orgId/validate", ctl.Members.Validate)
	orgs.Post("/:orgId/members", middleware.InviteRateLimiter(), ctl.Organizations.AddMember)
	orgs.Get("/:orgId/members", ctl.Members.List)
	orgs.Get("/:orgId/members/:authId", ctl.Members.Get)
	orgs.Put("/:orgId/members/:authId/role", ctl.Members.UpdateRole)
	orgs.Delete("/:orgId/members/:authId", ctl.Members.Remove)
	orgs.Get("/:orgId/invitations", ctl.Invitations.Pending)
	orgs.Delete("/:orgId/invitations", ctl.Invitations.Cancel)
	orgs.Get("/:orgId/projects", ctl.Projects.ListByOrg)

	projects := api.Group("/projects", middleware.Protected())
	projects.Post("/", ctl.Projects.Create)
	projects.Get("/mine", ctl.Projects.Mine)
	projects.Get("/:projectId", ctl.Projects.Get)
	projects.Put("/:projectId", ctl.Projects.Update)
	projects.Delete("/:projectId", ctl.Projects.Delete)
	projects.Get("/:projectId/validate", ctl.Projects.Validate)
	projects.Post("/:projectId/members", ctl.ProjectMembers.Add)
	projects.Get("/:projectId/members", ctl.ProjectMembers.List)
	projects.Put("/:projectId/members/:authId/role", ctl.ProjectMembers.UpdateRole)
	projects.Delete("/:projectId/members/:authId", ctl.ProjectMembers.Remove)
}
