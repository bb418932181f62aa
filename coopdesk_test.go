package coopdesk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/coopdesk/agent"
	"github.com/hupe1980/coopdesk/config"
	"github.com/hupe1980/coopdesk/department"
	"github.com/hupe1980/coopdesk/logging"
	"github.com/hupe1980/coopdesk/model"
	"github.com/hupe1980/coopdesk/runner"
)

func scriptedConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Model.Provider = "scripted"
	cfg.Knowledge.Dir = filepath.Join(t.TempDir(), "missing")

	return cfg
}

func TestNew_Scripted(t *testing.T) {
	desk, err := New(scriptedConfig(t), func(o *Options) { o.Logger = logging.NoOpLogger{} })
	require.NoError(t, err)

	t.Cleanup(func() { _ = desk.Close() })

	assert.Len(t, desk.Engine.Specialists(), len(department.Catalog()))

	reply, err := desk.Chat(context.Background(), "s1", "hola")
	require.NoError(t, err)
	assert.Equal(t, ScriptedReply, reply.Text)
}

func TestNew_Backends(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name  string
		setup func(cfg *config.Config)
	}{
		{name: "memory", setup: func(*config.Config) {}},
		{name: "redis", setup: func(cfg *config.Config) {
			cfg.Store.Backend = "redis"
			cfg.Store.Redis.Addr = mr.Addr()
		}},
		{name: "sqlite", setup: func(cfg *config.Config) {
			cfg.Store.Backend = "sqlite"
			cfg.Store.SQLite.Path = filepath.Join(t.TempDir(), "coopdesk.db")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := scriptedConfig(t)
			tt.setup(cfg)

			desk, err := New(cfg, func(o *Options) { o.Logger = logging.NoOpLogger{} })
			require.NoError(t, err)

			defer func() { assert.NoError(t, desk.Close()) }()

			_, err = desk.Chat(context.Background(), "s1", "hola")
			require.NoError(t, err)

			_, err = desk.Chat(context.Background(), "s1", "gracias")
			require.NoError(t, err)

			state, err := desk.Runner.History(context.Background(), "s1")
			require.NoError(t, err)
			assert.Len(t, state.Messages, 4)
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "postgres"

	_, err := New(cfg)
	require.Error(t, err)
}

func TestNew_KnowledgeAndRouting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "vivienda"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vivienda", "subsidios.md"),
		[]byte("# Subsidio de vivienda\nEl subsidio cubre hasta 30 SMMLV para asociados activos.\n"), 0o600))

	cfg := scriptedConfig(t)
	cfg.Knowledge.Dir = dir

	llm := model.NewScriptedModel("llm",
		model.CallTool("c1", "to_vivienda", `{"request":"subsidio"}`),
		model.CallTool("c2", "consultar_vivienda", `{"query":"subsidio de vivienda"}`),
		model.Reply("El subsidio cubre hasta 30 SMMLV."),
	)

	desk, err := New(cfg, func(o *Options) {
		o.Model = llm
		o.Logger = logging.NoOpLogger{}
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = desk.Close() })

	reply, err := desk.Chat(context.Background(), "s1", "¿cómo funciona el subsidio de vivienda?")
	require.NoError(t, err)
	assert.Equal(t, "El subsidio cubre hasta 30 SMMLV.", reply.Text)
	assert.Equal(t, "vivienda", reply.Active)

	state, err := desk.Runner.History(context.Background(), "s1")
	require.NoError(t, err)

	var found bool

	for _, m := range state.Messages {
		for _, fr := range m.FunctionResponses() {
			if fr.Name == "consultar_vivienda" {
				text, _ := fr.Response.(string)
				found = strings.Contains(text, "30 SMMLV")
			}
		}
	}

	assert.True(t, found, "knowledge tool result should carry the document")
}

func TestHandler(t *testing.T) {
	desk, err := New(scriptedConfig(t), func(o *Options) { o.Logger = logging.NoOpLogger{} })
	require.NoError(t, err)

	t.Cleanup(func() { _ = desk.Close() })

	srv := httptest.NewServer(desk.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/v1/sessions/s1/messages", "application/json", strings.NewReader(`{"text":"hola"}`))
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply runner.Reply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.Equal(t, ScriptedReply, reply.Text)

	m, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)

	defer m.Body.Close()

	assert.Equal(t, http.StatusOK, m.StatusCode)
}

// hangingModel never answers until its context ends.
type hangingModel struct{}

func (hangingModel) Generate(ctx context.Context, _ model.Request) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		<-ctx.Done()
		errCh <- ctx.Err()
	}()

	return respCh, errCh
}

func (hangingModel) Info() model.Info { return model.Info{Name: "hanging", SupportsTools: true} }

func TestNew_TurnTimeoutEndsHangingTurn(t *testing.T) {
	cfg := scriptedConfig(t)
	cfg.Turn.Timeout = 50 * time.Millisecond

	desk, err := New(cfg, func(o *Options) {
		o.Logger = logging.NoOpLogger{}
		o.Model = hangingModel{}
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = desk.Close() })

	start := time.Now()
	reply, err := desk.Chat(context.Background(), "s1", "hola")
	require.NoError(t, err)

	assert.Equal(t, agent.DefaultErrorText, reply.Text)
	assert.Less(t, time.Since(start), 5*time.Second)

	history, err := desk.Runner.History(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, history.Messages, 2)
}
