package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mesahub/mesa-backend/internal/config"
	"github.com/mesahub/mesa-backend/internal/store"
	"github.com/mesahub/mesa-backend/internal/table"
	"github.com/mesahub/mesa-backend/pkg/types"
)

func newTestAPI(t *testing.T) (http.Handler, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{MasterCode: "secret", ChatHistory: 100}
	api := &API{
		Store: st,
		Table: table.New(ctx, st, zap.NewNop(), cfg.ChatHistory),
		Cfg:   cfg,
		Log:   zap.NewNop(),
	}
	return SetupRoutes(api), st
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeLogin(t *testing.T, rec *httptest.ResponseRecorder) loginResponse {
	t.Helper()
	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func loginMaster(t *testing.T, h http.Handler) types.User {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/login", map[string]string{
		"nickname":    "GM",
		"master_code": "secret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeLogin(t, rec).User
}

func TestLogin_MasterCodeCreatesMaster(t *testing.T) {
	h, _ := newTestAPI(t)

	u := loginMaster(t, h)
	assert.True(t, u.IsMaster)
	assert.Empty(t, u.CharacterID)
	assert.Equal(t, 10, u.HealthPoints)

	// a second master login lands on the same session
	again := loginMaster(t, h)
	assert.Equal(t, u.ID, again.ID)
}

func TestLogin_PlayerNeedsThreeDigitCharacterID(t *testing.T) {
	h, _ := newTestAPI(t)

	for _, bad := range []string{"", "12", "1234", "abc", "12x"} {
		rec := doJSON(t, h, http.MethodPost, "/api/login", map[string]string{
			"nickname":     "Alice",
			"character_id": bad,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "character_id=%q", bad)
	}

	// a wrong master code falls through to the character-id path
	rec := doJSON(t, h, http.MethodPost, "/api/login", map[string]string{
		"nickname":    "Mallory",
		"master_code": "wrong",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_PlayerCreateThenRejoin(t *testing.T) {
	h, _ := newTestAPI(t)

	rec := doJSON(t, h, http.MethodPost, "/api/login", map[string]string{
		"nickname":     "Alice",
		"character_id": "123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decodeLogin(t, rec).User
	assert.False(t, first.IsMaster)
	assert.Equal(t, "123", first.CharacterID)

	// same id, new nickname: same user, renamed
	rec = doJSON(t, h, http.MethodPost, "/api/login", map[string]string{
		"nickname":     "Alicia",
		"character_id": "123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	second := decodeLogin(t, rec).User
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Alicia", second.Nickname)
}

func TestLogin_MissingNickname(t *testing.T) {
	h, _ := newTestAPI(t)
	rec := doJSON(t, h, http.MethodPost, "/api/login", map[string]string{"character_id": "123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMasterCreateCharacter(t *testing.T) {
	h, _ := newTestAPI(t)
	gm := loginMaster(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/master/characters", map[string]string{
		"master_id": gm.ID,
		"nickname":  "Bob",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeLogin(t, rec).User
	assert.Len(t, created.CharacterID, 3)

	// explicit id that is already taken
	rec = doJSON(t, h, http.MethodPost, "/api/master/characters", map[string]string{
		"master_id":    gm.ID,
		"nickname":     "Clone",
		"character_id": created.CharacterID,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGenerateCharacterID_ErrorsWhenSpaceExhausted(t *testing.T) {
	_, st := newTestAPI(t)
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		require.NoError(t, st.CreateUser(ctx, fmt.Sprintf("u%d", i), "Filler", false, fmt.Sprintf("%03d", i)))
	}

	req := httptest.NewRequest(http.MethodPost, "/api/master/characters", nil)
	_, err := generateCharacterID(req, st)
	assert.Error(t, err)
}

func TestMasterCreateCharacter_NonMasterForbidden(t *testing.T) {
	h, st := newTestAPI(t)
	require.NoError(t, st.CreateUser(context.Background(), "p1", "Alice", false, "123"))

	rec := doJSON(t, h, http.MethodPost, "/api/master/characters", map[string]string{
		"master_id": "p1",
		"nickname":  "Bob",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMasterDeleteCharacter(t *testing.T) {
	h, st := newTestAPI(t)
	gm := loginMaster(t, h)
	require.NoError(t, st.CreateUser(context.Background(), "p1", "Alice", false, "123"))

	// players cannot delete characters
	rec := doJSON(t, h, http.MethodDelete, "/api/master/characters/123?master_id=p1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/api/master/characters/123?master_id="+gm.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	_, err := st.GetUser(context.Background(), "p1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	rec = doJSON(t, h, http.MethodDelete, "/api/master/characters/123?master_id="+gm.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCharacter_GetAndUpdate(t *testing.T) {
	h, st := newTestAPI(t)
	require.NoError(t, st.CreateUser(context.Background(), "p1", "Alice", false, "123"))

	rec := doJSON(t, h, http.MethodGet, "/api/character/p1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ch types.Character
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ch))
	assert.Equal(t, types.DefaultAttributes(), ch.Attributes)

	rec = doJSON(t, h, http.MethodPut, "/api/character/p1", map[string]any{
		"skills": []types.Skill{{Name: "Stealth", Value: 3}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ch))
	require.Len(t, ch.Skills, 1)
	assert.Equal(t, "Stealth", ch.Skills[0].Name)
	// untouched sections survive a partial update
	assert.Equal(t, types.DefaultAttributes(), ch.Attributes)

	rec = doJSON(t, h, http.MethodGet, "/api/character/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateHealth_ClampsAtStore(t *testing.T) {
	h, st := newTestAPI(t)
	require.NoError(t, st.CreateUser(context.Background(), "p1", "Alice", false, "123"))

	rec := doJSON(t, h, http.MethodPut, "/api/character/p1/health", map[string]int{"healthPoints": 99})
	require.Equal(t, http.StatusOK, rec.Code)

	u, err := st.GetUser(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 10, u.HealthPoints)
}

func TestSharedItems_MasterGatedCRUD(t *testing.T) {
	h, st := newTestAPI(t)
	gm := loginMaster(t, h)
	require.NoError(t, st.CreateUser(context.Background(), "p1", "Alice", false, "123"))

	// players cannot publish
	rec := doJSON(t, h, http.MethodPost, "/api/shared-items?master_id=p1", types.Item{Name: "Sword"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/shared-items?master_id="+gm.ID, types.Item{Name: "Sword"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created types.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)

	// anyone can read the catalog
	rec = doJSON(t, h, http.MethodGet, "/api/shared-items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []types.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)

	created.Name = "Greatsword"
	rec = doJSON(t, h, http.MethodPut, "/api/shared-items/"+created.ID, created)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/api/shared-items/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, h, http.MethodDelete, "/api/shared-items/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNPCs_CRUD(t *testing.T) {
	h, _ := newTestAPI(t)
	gm := loginMaster(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/npcs?master_id="+gm.ID, types.NPC{
		Nickname: "Goblin", HealthPoints: 5, MaxHealthPoints: 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var npcs []types.NPC
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &npcs))
	require.Len(t, npcs, 1)
	assert.Equal(t, gm.ID, npcs[0].MasterID)

	rec = doJSON(t, h, http.MethodGet, "/api/npcs/"+gm.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	npc := npcs[0]
	npc.Nickname = "Hobgoblin"
	rec = doJSON(t, h, http.MethodPut, "/api/npcs/"+npc.ID, npc)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/api/npcs/"+npc.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, h, http.MethodDelete, "/api/npcs/"+npc.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMasterNotes_OwnerOnly(t *testing.T) {
	h, st := newTestAPI(t)
	gm := loginMaster(t, h)
	require.NoError(t, st.CreateUser(context.Background(), "p1", "Alice", false, "123"))

	rec := doJSON(t, h, http.MethodPost, "/api/master-notes?master_id="+gm.ID, types.MasterNote{Title: "Plot"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var note types.MasterNote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &note))

	// only the master reads notes, even their own listing route
	rec = doJSON(t, h, http.MethodGet, "/api/master-notes/p1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/master-notes/"+gm.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var notes []types.MasterNote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, "Plot", notes[0].Title)
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	h, _ := newTestAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/users", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthz(t *testing.T) {
	h, _ := newTestAPI(t)
	rec := doJSON(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
