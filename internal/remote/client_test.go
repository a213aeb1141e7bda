package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/specialistvlad/phasegrid/internal/artifact"
	"github.com/specialistvlad/phasegrid/internal/ctxlog"
	"github.com/specialistvlad/phasegrid/internal/phase"
	"github.com/specialistvlad/phasegrid/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(ClientConfig{BaseURL: srv.URL + "/api/", Timeout: 2 * time.Second, Token: "secret"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSubmitConfiguration_SendsPhasePayload(t *testing.T) {
	var gotPath, gotAuth, gotRequestID string
	var gotBody rules.Grammar
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusNoContent)
	})

	g := rules.Grammar{
		Variables: []string{"S"},
		Terminals: []string{"a"},
		Start:     "S",
		Rules:     []rules.Production{{LHS: "S", RHS: []string{"a"}}},
	}
	err := c.SubmitConfiguration(context.Background(), phase.Parser, "proj-1", g)
	require.NoError(t, err)

	assert.Equal(t, "/api/projects/proj-1/phases/parser/submit", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, g, gotBody)
}

func TestGenerateArtifact_DecodesEnvelope(t *testing.T) {
	tokens := artifact.TokenSet{Tokens: []artifact.Token{{Type: "num", Value: "42"}}, Unidentified: []string{"$"}}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/projects/p/phases/lexer/generate", r.URL.Path)
		raw, err := artifact.Encode(tokens)
		require.NoError(t, err)
		_, _ = w.Write(raw)
	})

	a, err := c.GenerateArtifact(context.Background(), phase.Lexer, "p")
	require.NoError(t, err)
	assert.Equal(t, tokens, a)
}

func TestGenerateArtifact_WrongKindIsTransportError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := artifact.Encode(artifact.SymbolTable{})
		_, _ = w.Write(raw)
	})

	_, err := c.GenerateArtifact(context.Background(), phase.Lexer, "p")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Contains(t, err.Error(), "expected token_set artifact")
}

func TestGenerateArtifact_MalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	})
	_, err := c.GenerateArtifact(context.Background(), phase.Parser, "p")
	assert.True(t, IsTransport(err))
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		identity bool
		message  string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"session expired"}`, true, "session expired"},
		{"forbidden", http.StatusForbidden, ``, true, "Forbidden"},
		{"unknown project", http.StatusNotFound, `{"error":"no such project","code":"project_not_found"}`, true, "no such project"},
		{"plain not found", http.StatusNotFound, `{"error":"route missing"}`, false, "route missing"},
		{"server error", http.StatusInternalServerError, `{"error":"grammar is ambiguous"}`, false, "grammar is ambiguous"},
		{"bad gateway", http.StatusBadGateway, ``, false, "Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			err := c.SubmitConfiguration(context.Background(), phase.Analyser, "p", rules.AnalyserRuleSet{})
			require.Error(t, err)
			assert.Equal(t, tt.identity, IsIdentity(err), err.Error())
			assert.Equal(t, !tt.identity, IsTransport(err), err.Error())
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestErrorBodyThatIsNotJSONIsLogged(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>upstream down</html>"))
	})
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	err := c.SubmitConfiguration(ctx, phase.Lexer, "p", rules.LexerRuleSet{})
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Contains(t, err.Error(), "Bad Gateway")
	assert.Contains(t, logs.String(), "Error response body is not JSON")
	assert.Contains(t, logs.String(), "status=502")
}

func TestMissingProjectNeverHitsTheNetwork(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	err := c.SubmitConfiguration(context.Background(), phase.Lexer, "  ", rules.LexerRuleSet{})
	require.Error(t, err)
	assert.True(t, IsIdentity(err))
	assert.True(t, errors.Is(err, ErrMissingProject))

	_, err = c.GenerateArtifact(context.Background(), phase.Lexer, "")
	assert.True(t, IsIdentity(err))
	assert.Zero(t, calls.Load())
}

func TestUnreachableServiceIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewClient(ClientConfig{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)
	err = c.SubmitConfiguration(context.Background(), phase.Lexer, "p", rules.LexerRuleSet{})
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Contains(t, err.Error(), "unreachable")
}

func TestTimeoutResolvesToTransportError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c, err := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	_, err = c.GenerateArtifact(context.Background(), phase.Lexer, "p")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestRateLimiterHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	limited, err := NewClient(ClientConfig{BaseURL: srv.URL, RateLimit: 0.001, Burst: 1})
	require.NoError(t, err)

	require.NoError(t, limited.SubmitConfiguration(context.Background(), phase.Lexer, "p", rules.LexerRuleSet{}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = limited.SubmitConfiguration(ctx, phase.Lexer, "p", rules.LexerRuleSet{})
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	assert.Error(t, err)
	_, err = NewClient(ClientConfig{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestExpectedKind(t *testing.T) {
	assert.Equal(t, artifact.KindTokenSet, ExpectedKind(phase.Lexer))
	assert.Equal(t, artifact.KindSyntaxTree, ExpectedKind(phase.Parser))
	assert.Equal(t, artifact.KindSymbolTable, ExpectedKind(phase.Analyser))
	assert.Equal(t, artifact.KindTranslatedCode, ExpectedKind(phase.Translator))
	assert.Equal(t, artifact.KindTranslatedCode, ExpectedKind(phase.Optimiser))
	assert.Equal(t, artifact.KindSourceText, ExpectedKind(phase.Source))
}
