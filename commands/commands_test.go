package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-floor/config"
	"github.com/yeremiapane/restaurant-floor/database"
	"github.com/yeremiapane/restaurant-floor/floor"
	"github.com/yeremiapane/restaurant-floor/models"
)

func testOptions(t *testing.T, seed bool) *RootOptions {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "floor.db")
	return &RootOptions{
		LoadConfig: func() (*config.Config, error) {
			return &config.Config{
				Port:        "0",
				GinMode:     "test",
				CORSOrigins: []string{"*"},
				SeedOnStart: seed,
				Database:    config.DatabaseConfig{Driver: "sqlite", DSN: dsn},
				Floor:       floor.DefaultPolicy(),
			}, nil
		},
	}
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestCycleCommand_SeatsSeededParties(t *testing.T) {
	opts := testOptions(t, true)

	out := execute(t, NewCycleCommand(opts), "--at", "2026-03-14T19:30:00Z")

	var result floor.CycleResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	// John (4) takes T3, Jane (2) takes T1, Bob (6) waits: T4 is reserved
	assert.Equal(t, 8, result.Summary.TotalTables)
	assert.Equal(t, 3, result.Summary.QueueLength)
	assert.Equal(t, 2, result.Summary.MatchesFound)
	require.Len(t, result.Matches, 2)
	assert.Equal(t, "T3", result.Matches[0].TableNumber)
	assert.Equal(t, "T1", result.Matches[1].TableNumber)
	assert.NotEmpty(t, result.CycleID)
}

func TestCycleCommand_DryRunWritesNothing(t *testing.T) {
	opts := testOptions(t, true)

	first := execute(t, NewCycleCommand(opts), "--dry-run")
	second := execute(t, NewCycleCommand(opts), "--dry-run")

	var a, b floor.Analysis
	require.NoError(t, json.Unmarshal([]byte(first), &a))
	require.NoError(t, json.Unmarshal([]byte(second), &b))
	assert.Equal(t, 2, a.Summary.MatchesFound)
	assert.Equal(t, a.Summary, b.Summary)
}

func TestCycleCommand_BadInstant(t *testing.T) {
	cmd := NewCycleCommand(testOptions(t, false))
	cmd.SetArgs([]string{"--at", "yesterday"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.ErrorContains(t, cmd.Execute(), "invalid --at")
}

func TestSeedCommand(t *testing.T) {
	opts := testOptions(t, false)

	assert.Contains(t, execute(t, NewSeedCommand(opts)), "demo floor created")
	assert.Contains(t, execute(t, NewSeedCommand(opts)), "nothing to do")
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	root := NewRootCommand()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "cycle", "seed", "create-admin"})
}

func TestAdminCommand(t *testing.T) {
	opts := testOptions(t, false)

	out := execute(t, NewAdminCommand(opts), "--email", "boss@example.com", "--password", "password123")
	assert.Contains(t, out, "admin boss@example.com created")

	cmd := NewAdminCommand(opts)
	cmd.SetArgs([]string{"--email", "boss@example.com", "--password", "password123"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.ErrorIs(t, cmd.Execute(), database.ErrDuplicateEmail)

	cmd = NewAdminCommand(opts)
	cmd.SetArgs([]string{"--email", "short@example.com", "--password", "short"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.ErrorContains(t, cmd.Execute(), "at least 8 characters")
}

func TestNewApp_BootstrapsFirstAdmin(t *testing.T) {
	cfg, err := testOptions(t, false).LoadConfig()
	require.NoError(t, err)
	cfg.Admin = config.AdminConfig{Name: "Boss", Email: "boss@example.com", Password: "password123"}

	app, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	var admins int64
	require.NoError(t, app.DB.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error)
	app.Close()
	assert.Equal(t, int64(1), admins)

	// a restart with an admin already present creates nobody
	cfg.Admin.Email = "other@example.com"
	app, err = NewApp(context.Background(), cfg)
	require.NoError(t, err)
	defer app.Close()
	var users int64
	require.NoError(t, app.DB.Model(&models.User{}).Count(&users).Error)
	assert.Equal(t, int64(1), users)
}

func TestNewApp_SweepsIdleLimiterClients(t *testing.T) {
	cfg, err := testOptions(t, false).LoadConfig()
	require.NoError(t, err)
	app, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	defer app.Close()

	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/queue", nil))
	require.Equal(t, http.StatusOK, w.Code)

	app.Scheduler.Now = func() time.Time { return time.Now().Add(limiterIdleTTL + time.Minute) }
	removed := app.Scheduler.Sweep()
	assert.Equal(t, 1, removed["idle request limiter clients"])
	assert.Contains(t, removed, "idle login limiter clients")
}
