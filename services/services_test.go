package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"taskhive/clients"
	"taskhive/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// A ":memory:" database lives per connection; one connection keeps
	// every query on the same database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Organization{},
		&models.OrganizationMember{},
		&models.OrganizationInvitation{},
		&models.Project{},
		&models.ProjectMember{},
	))
	return db
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

type publishedEvent struct {
	Event      any
	RoutingKey string
}

type fakePublisher struct {
	events []publishedEvent
	err    error
}

func (p *fakePublisher) Publish(event any, routingKey string) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{Event: event, RoutingKey: routingKey})
	return nil
}

func (p *fakePublisher) keys() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.RoutingKey)
	}
	return out
}

// fakeDirectory is an in-memory user service.
type fakeDirectory struct {
	users     map[string]clients.UserDetail
	emails    map[string]string
	lookupErr error
	batchErr  error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:  make(map[string]clients.UserDetail),
		emails: make(map[string]string),
	}
}

func (d *fakeDirectory) addUser(authID, name, email string) {
	d.users[authID] = clients.UserDetail{AuthID: authID, Name: name, Email: email}
	d.emails[email] = authID
}

func (d *fakeDirectory) LookupByEmail(email string) (*clients.UserLookup, error) {
	if d.lookupErr != nil {
		return nil, d.lookupErr
	}
	authID, ok := d.emails[email]
	if !ok {
		return &clients.UserLookup{Exists: false}, nil
	}
	return &clients.UserLookup{Exists: true, AuthID: authID}, nil
}

func (d *fakeDirectory) GetUserByID(authID string) (*clients.UserDetail, error) {
	user, ok := d.users[authID]
	if !ok {
		return nil, fmt.Errorf("user %s not found", authID)
	}
	return &user, nil
}

func (d *fakeDirectory) GetUsersByIDs(authIDs []string) ([]clients.UserDetail, error) {
	if d.batchErr != nil {
		return nil, d.batchErr
	}
	out := make([]clients.UserDetail, 0, len(authIDs))
	for _, id := range authIDs {
		if user, ok := d.users[id]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

// fakeTenant is an in-memory tenant directory for project tests. onGetMember,
// when set, runs before each lookup so tests can interleave concurrent
// mutations.
type fakeTenant struct {
	members     map[string]*MemberInfo
	err         error
	onGetMember func(orgID, authID string)
}

func newFakeTenant() *fakeTenant {
	return &fakeTenant{members: make(map[string]*MemberInfo)}
}

func (f *fakeTenant) addMember(orgID, authID string, role models.OrgRole, name, email string) {
	f.members[orgID+"/"+authID] = &MemberInfo{
		OrgID:  orgID,
		AuthID: authID,
		Role:   role,
		Name:   name,
		Email:  email,
	}
}

func (f *fakeTenant) GetMember(orgID, authID string) (*MemberInfo, error) {
	if f.onGetMember != nil {
		f.onGetMember(orgID, authID)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.members[orgID+"/"+authID], nil
}

func (f *fakeTenant) ValidateOrg(orgID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for key := range f.members {
		if len(key) > len(orgID) && key[:len(orgID)+1] == orgID+"/" {
			return true, nil
		}
	}
	return false, nil
}

var errDirectoryDown = errors.New("user service unavailable")
