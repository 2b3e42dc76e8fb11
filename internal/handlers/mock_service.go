package handlers

import (
	"context"
	"sync/atomic"
	"time"

	"controlling_roaster/internal/models"
	"controlling_roaster/internal/service"
	"controlling_roaster/internal/state"

	"github.com/gin-gonic/gin"
)

// mockAuth accepts any bearer token as operator parseID.
type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(ctx context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(ctx context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockRoaster struct {
	state   models.RoasterState
	reading models.Reading

	startErr     error
	stopErr      error
	engageErr    error
	disengageErr error
	setpointsErr error

	lastStart     service.StartParams
	lastSetpoints state.SetpointRequest
	startCalled   int
	stopCalled    int
	engageCalls   int
	disengageCall int
	setpointCalls int

	stateCalls atomic.Int32
}

func (m *mockRoaster) Start(ctx context.Context, p service.StartParams) error {
	m.startCalled++
	m.lastStart = p
	return m.startErr
}
func (m *mockRoaster) Stop(ctx context.Context) error {
	m.stopCalled++
	return m.stopErr
}
func (m *mockRoaster) EngageControl(ctx context.Context) error {
	m.engageCalls++
	return m.engageErr
}
func (m *mockRoaster) DisengageControl(ctx context.Context) error {
	m.disengageCall++
	return m.disengageErr
}
func (m *mockRoaster) RequestSetpoints(ctx context.Context, r state.SetpointRequest) error {
	m.setpointCalls++
	m.lastSetpoints = r
	return m.setpointsErr
}
func (m *mockRoaster) Reading() models.Reading {
	return m.reading
}
func (m *mockRoaster) State() models.RoasterState {
	m.stateCalls.Add(1)
	return m.state
}

type mockEventLog struct {
	resp     []models.RoasterEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.RoasterEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

func newTestRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewHandler(s, nil, service.StartParams{}, nil).InitRoutes()
}
