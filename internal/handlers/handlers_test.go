package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/jwebster45206/dicebot/pkg/actor"
	"github.com/jwebster45206/dicebot/pkg/command"
	"github.com/jwebster45206/dicebot/pkg/dice"
	"github.com/jwebster45206/dicebot/pkg/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

// onesSource rolls 1 on every die.
type onesSource struct{}

func (onesSource) Int64N(int64) int64 { return 0 }

func TestRollHandler(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		body           string
		lang           string
		expectedStatus int
		expectedResult string
		expectedCode   string
		expectedError  string
	}{
		{
			name:           "arithmetic",
			method:         http.MethodPost,
			body:           `{"expression":"2+3*4"}`,
			expectedStatus: http.StatusOK,
			expectedResult: "14",
		},
		{
			name:           "dice",
			method:         http.MethodPost,
			body:           `{"expression":"4d6kh3+1"}`,
			expectedStatus: http.StatusOK,
			expectedResult: "4",
		},
		{
			name:           "engine error in english",
			method:         http.MethodPost,
			body:           `{"expression":"0d6"}`,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   "INVALID_ROLL_PARAMETERS",
			expectedError:  "can't be rolled",
		},
		{
			name:           "engine error in portuguese",
			method:         http.MethodPost,
			body:           `{"expression":"2x"}`,
			lang:           "pt-BR,pt;q=0.9",
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   "INVALID_TOKEN",
			expectedError:  "Não consigo",
		},
		{
			name:           "bad json",
			method:         http.MethodPost,
			body:           `{"expression":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing expression",
			method:         http.MethodPost,
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "wrong method",
			method:         http.MethodGet,
			expectedStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRollHandler(dice.NewEvaluator(onesSource{}), storage.NewMockStorage(), language.AmericanEnglish, testLogger())

			req := httptest.NewRequest(tt.method, "/v1/roll", strings.NewReader(tt.body))
			if tt.lang != "" {
				req.Header.Set("Accept-Language", tt.lang)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			if tt.expectedStatus == http.StatusOK {
				var resp command.RollResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				assert.Equal(t, tt.expectedResult, resp.Result)
				return
			}

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tt.expectedCode, resp.Code)
			if tt.expectedError != "" {
				assert.Contains(t, resp.Error, tt.expectedError)
			}
		})
	}
}

func TestRollHandler_RecordsHistory(t *testing.T) {
	store := storage.NewMockStorage()
	h := NewRollHandler(dice.NewEvaluator(onesSource{}), store, language.AmericanEnglish, testLogger())

	for _, body := range []string{
		`{"expression":"3d6","channel_id":"tavern","user":"sam"}`,
		`{"expression":"1d20"}`,
		`{"expression":"1d0","channel_id":"tavern"}`,
	} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/roll", strings.NewReader(body)))
	}

	rolls, err := store.ListRolls(context.Background(), "tavern", 10)
	require.NoError(t, err)
	require.Len(t, rolls, 1)
	assert.Equal(t, "3d6", rolls[0].Expression)
	assert.Equal(t, "3", rolls[0].Result)
	assert.Equal(t, "sam", rolls[0].User)
}

func TestRollHandler_HistoryFailureStillAnswers(t *testing.T) {
	store := storage.NewMockStorage()
	store.SetAppendError(errors.New("disk full"))
	h := NewRollHandler(dice.NewEvaluator(onesSource{}), store, language.AmericanEnglish, testLogger())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/roll", strings.NewReader(`{"expression":"2d6","channel_id":"c"}`)))

	assert.Equal(t, http.StatusOK, rr.Code)
}

type fakeQueue struct {
	mu   sync.Mutex
	reqs []*command.Request
	err  error
}

func (q *fakeQueue) Enqueue(ctx context.Context, req *command.Request) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.reqs = append(q.reqs, req)
	return nil
}

type fakePublisher struct {
	ids []uuid.UUID
	err error
}

func (p *fakePublisher) PublishRequestQueued(ctx context.Context, channelID string, requestID uuid.UUID, content string) error {
	p.ids = append(p.ids, requestID)
	return p.err
}

func TestCommandsHandler(t *testing.T) {
	q := &fakeQueue{}
	pub := &fakePublisher{}
	h := NewCommandsHandler(q, pub, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/v1/commands?lang=pt-BR",
		strings.NewReader(`{"channel_id":"tavern","user":"sam","content":"~roll 1d20"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)

	var resp command.CommandAccepted
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEqual(t, uuid.Nil, resp.RequestID)

	require.Len(t, q.reqs, 1)
	queued := q.reqs[0]
	assert.Equal(t, resp.RequestID, queued.RequestID)
	assert.Equal(t, "tavern", queued.ChannelID)
	assert.Equal(t, "~roll 1d20", queued.Content)
	assert.Equal(t, "pt-BR", queued.Locale)
	assert.False(t, queued.EnqueuedAt.IsZero())

	assert.Equal(t, []uuid.UUID{resp.RequestID}, pub.ids)
}

func TestCommandsHandler_Errors(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		body           string
		queueErr       error
		expectedStatus int
	}{
		{"wrong method", http.MethodGet, "", nil, http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, `nope`, nil, http.StatusBadRequest},
		{"missing channel", http.MethodPost, `{"content":"~ping"}`, nil, http.StatusBadRequest},
		{"blank content", http.MethodPost, `{"channel_id":"c","content":"  "}`, nil, http.StatusBadRequest},
		{"queue down", http.MethodPost, `{"channel_id":"c","content":"~ping"}`, errors.New("redis down"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCommandsHandler(&fakeQueue{err: tt.queueErr}, &fakePublisher{}, testLogger())
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(tt.method, "/v1/commands", strings.NewReader(tt.body)))
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}

func TestCommandsHandler_PublishFailureStillAccepted(t *testing.T) {
	q := &fakeQueue{}
	h := NewCommandsHandler(q, &fakePublisher{err: errors.New("pubsub down")}, testLogger())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/commands", strings.NewReader(`{"channel_id":"c","content":"~ping"}`)))

	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Len(t, q.reqs, 1)
}

func TestHistoryHandler(t *testing.T) {
	store := storage.NewMockStorage()
	ctx := context.Background()
	for _, expr := range []string{"1d4", "1d6", "1d8"} {
		require.NoError(t, store.AppendRoll(ctx, command.RollRecord{Expression: expr, Result: "1", ChannelID: "tavern"}))
	}
	h := NewHistoryHandler(store, testLogger())

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedExprs  []string
	}{
		{"newest first", "/v1/rolls/tavern", http.StatusOK, []string{"1d8", "1d6", "1d4"}},
		{"limited", "/v1/rolls/tavern?limit=2", http.StatusOK, []string{"1d8", "1d6"}},
		{"limit above max", "/v1/rolls/tavern?limit=1000", http.StatusOK, []string{"1d8", "1d6", "1d4"}},
		{"empty channel", "/v1/rolls/quiet", http.StatusOK, []string{}},
		{"bad limit", "/v1/rolls/tavern?limit=abc", http.StatusBadRequest, nil},
		{"zero limit", "/v1/rolls/tavern?limit=0", http.StatusBadRequest, nil},
		{"missing channel", "/v1/rolls/", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedExprs == nil {
				return
			}

			var rolls []command.RollRecord
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rolls))
			exprs := make([]string, 0, len(rolls))
			for _, r := range rolls {
				exprs = append(exprs, r.Expression)
			}
			assert.Equal(t, tt.expectedExprs, exprs)
		})
	}
}

func TestCharactersHandler(t *testing.T) {
	store := storage.NewMockStorage()
	store.AddCharacter(&actor.CharacterSpec{
		ID:        "mira",
		Name:      "Mira Thorne",
		Class:     "Rogue",
		Level:     3,
		Abilities: actor.Abilities{Strength: 8, Dexterity: 17},
		MaxHP:     21,
		AC:        15,
		Attacks:   map[string]string{"shortsword": "1d6+3"},
	})
	store.AddCharacter(&actor.CharacterSpec{ID: "broken", Name: "Broken"})
	h := NewCharactersHandler(testLogger(), store)

	t.Run("list", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/characters", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var list []map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
		require.Len(t, list, 2)
		assert.Equal(t, "broken", list[0]["id"])
		assert.Equal(t, "mira", list[1]["id"])
		assert.Equal(t, float64(1), list[1]["attacks"])
	})

	t.Run("get", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/characters/Mira", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var sheet struct {
			Name      string         `json:"name"`
			HP        int            `json:"hp"`
			Modifiers map[string]int `json:"modifiers"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sheet))
		assert.Equal(t, "Mira Thorne", sheet.Name)
		assert.Equal(t, 21, sheet.HP)
		assert.Equal(t, 3, sheet.Modifiers["dexterity"])
		assert.Equal(t, -1, sheet.Modifiers["strength"])
	})

	t.Run("not found", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/characters/nobody", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("invalid sheet", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/characters/broken", nil))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/v1/characters/mira", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	})
}
