package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesahub/mesa-backend/internal/store"
	"github.com/mesahub/mesa-backend/internal/table"
	"github.com/mesahub/mesa-backend/pkg/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func isCharacterID(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// generateCharacterID draws 3-digit ids until one is free. The id space only
// holds 1000 entries, so the draw is bounded; a full table returns an error
// instead of spinning.
func generateCharacterID(r *http.Request, st store.Store) (string, error) {
	for attempts := 0; attempts < 5000; attempts++ {
		n, err := rand.Int(rand.Reader, big.NewInt(1000))
		if err != nil {
			return "", err
		}
		id := fmt.Sprintf("%03d", n.Int64())
		_, err = st.GetUserByCharacterID(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errors.New("no free character ids left")
}

// master fetches a user and checks the master flag; writes the error response
// itself when the check fails.
func (api *API) master(w http.ResponseWriter, r *http.Request, id string) (types.User, bool) {
	u, err := api.Store.GetUser(r.Context(), id)
	if err != nil || !u.IsMaster {
		writeError(w, http.StatusForbidden, "only the master can do that")
		return types.User{}, false
	}
	return u, true
}

type loginRequest struct {
	Nickname    string `json:"nickname"`
	MasterCode  string `json:"master_code"`
	CharacterID string `json:"character_id"`
}

type loginResponse struct {
	User    types.User `json:"user"`
	Success bool       `json:"success"`
}

func (api *API) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	if req.Nickname == "" {
		writeError(w, http.StatusBadRequest, "nickname is required")
		return
	}

	if req.MasterCode != "" && req.MasterCode == api.Cfg.MasterCode {
		// one master per table: re-login reuses the existing session
		users, err := api.Store.GetUsers(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load users")
			return
		}
		for _, u := range users {
			if u.IsMaster {
				writeJSON(w, http.StatusOK, loginResponse{User: u, Success: true})
				return
			}
		}
		id := uuid.NewString()
		if err := api.Store.CreateUser(r.Context(), id, req.Nickname, true, ""); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to create master user")
			return
		}
		u, err := api.Store.GetUser(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to fetch master user")
			return
		}
		api.Log.Info("master logged in", zap.String("user_id", id))
		writeJSON(w, http.StatusOK, loginResponse{User: u, Success: true})
		return
	}

	if !isCharacterID(req.CharacterID) {
		writeError(w, http.StatusBadRequest, "character ID must be 3 digits")
		return
	}

	existing, err := api.Store.GetUserByCharacterID(r.Context(), req.CharacterID)
	switch {
	case err == nil:
		if existing.Nickname != req.Nickname {
			if err := api.Store.UpdateUserNickname(r.Context(), existing.ID, req.Nickname); err != nil {
				writeError(w, http.StatusInternalServerError, "failed to update nickname")
				return
			}
			existing.Nickname = req.Nickname
		}
		api.Log.Info("player logged in", zap.String("user_id", existing.ID), zap.String("character_id", req.CharacterID))
		writeJSON(w, http.StatusOK, loginResponse{User: existing, Success: true})

	case errors.Is(err, store.ErrNotFound):
		id := uuid.NewString()
		if err := api.Store.CreateUser(r.Context(), id, req.Nickname, false, req.CharacterID); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to create user")
			return
		}
		u, err := api.Store.GetUser(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to fetch user")
			return
		}
		api.Log.Info("player created", zap.String("user_id", id), zap.String("character_id", req.CharacterID))
		writeJSON(w, http.StatusOK, loginResponse{User: u, Success: true})

	default:
		writeError(w, http.StatusInternalServerError, "failed to look up character")
	}
}

type masterCreateRequest struct {
	MasterID    string `json:"master_id"`
	Nickname    string `json:"nickname"`
	CharacterID string `json:"character_id"`
}

func (api *API) MasterCreateCharacter(w http.ResponseWriter, r *http.Request) {
	var req masterCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	if _, ok := api.master(w, r, req.MasterID); !ok {
		return
	}
	if req.Nickname == "" {
		writeError(w, http.StatusBadRequest, "nickname is required")
		return
	}

	charID := req.CharacterID
	if charID == "" {
		var err error
		if charID, err = generateCharacterID(r, api.Store); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to generate character id")
			return
		}
	} else if !isCharacterID(charID) {
		writeError(w, http.StatusBadRequest, "character ID must be 3 digits")
		return
	} else if _, err := api.Store.GetUserByCharacterID(r.Context(), charID); err == nil {
		writeError(w, http.StatusConflict, "character ID already in use")
		return
	}

	id := uuid.NewString()
	if err := api.Store.CreateUser(r.Context(), id, req.Nickname, false, charID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create character")
		return
	}
	u, err := api.Store.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch character")
		return
	}

	api.Table.Inbox() <- table.BroadcastUsers{}
	writeJSON(w, http.StatusCreated, loginResponse{User: u, Success: true})
}

func (api *API) MasterDeleteCharacter(w http.ResponseWriter, r *http.Request) {
	if _, ok := api.master(w, r, r.URL.Query().Get("master_id")); !ok {
		return
	}
	charID := chi.URLParam(r, "characterID")
	target, err := api.Store.GetUserByCharacterID(r.Context(), charID)
	if err != nil {
		writeError(w, http.StatusNotFound, "character not found")
		return
	}
	if err := api.Store.DeleteUser(r.Context(), target.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete character")
		return
	}
	api.Table.Inbox() <- table.BroadcastUsers{}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (api *API) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := api.Store.GetUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (api *API) GetCharacter(w http.ResponseWriter, r *http.Request) {
	ch, err := api.Store.GetCharacter(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "character not found")
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (api *API) UpdateCharacter(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if _, err := api.Store.GetCharacter(r.Context(), userID); err != nil {
		writeError(w, http.StatusNotFound, "character not found")
		return
	}
	var upd types.CharacterUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	if err := store.ApplyCharacterUpdate(r.Context(), api.Store, userID, upd); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update character")
		return
	}
	ch, err := api.Store.GetCharacter(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch character")
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (api *API) UpdateHealth(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var body struct {
		HealthPoints int `json:"healthPoints"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	if err := api.Store.UpdateUserHealth(r.Context(), userID, body.HealthPoints); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update health")
		return
	}
	api.Table.Inbox() <- table.BroadcastUsers{}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (api *API) AddItemToCharacter(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var item types.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	if item.ID == "" {
		item.ID = "char-item-" + uuid.NewString()
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	if err := api.Store.AddItemToCharacter(r.Context(), userID, item); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to add item")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (api *API) AddAbilityToCharacter(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var ability types.Ability
	if err := json.NewDecoder(r.Body).Decode(&ability); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	if ability.ID == "" {
		ability.ID = "char-ability-" + uuid.NewString()
	}
	if err := api.Store.AddAbilityToCharacter(r.Context(), userID, ability); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to add ability")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (api *API) CreateNPC(w http.ResponseWriter, r *http.Request) {
	masterID := r.URL.Query().Get("master_id")
	if _, ok := api.master(w, r, masterID); !ok {
		return
	}
	var npc types.NPC
	if err := json.NewDecoder(r.Body).Decode(&npc); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	npc.ID = "npc-" + uuid.NewString()
	npc.MasterID = masterID
	if err := api.Store.CreateNPC(r.Context(), npc); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create npc")
		return
	}
	npcs, err := api.Store.GetNPCs(r.Context(), masterID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load npcs")
		return
	}
	api.Table.Inbox() <- table.BroadcastNPCs{MasterID: masterID}
	writeJSON(w, http.StatusCreated, npcs)
}

func (api *API) GetNPCs(w http.ResponseWriter, r *http.Request) {
	masterID := chi.URLParam(r, "masterID")
	u, err := api.Store.GetUser(r.Context(), masterID)
	if err != nil || !u.IsMaster {
		writeError(w, http.StatusNotFound, "master user not found")
		return
	}
	npcs, err := api.Store.GetNPCs(r.Context(), masterID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load npcs")
		return
	}
	writeJSON(w, http.StatusOK, npcs)
}

func (api *API) UpdateNPC(w http.ResponseWriter, r *http.Request) {
	var npc types.NPC
	if err := json.NewDecoder(r.Body).Decode(&npc); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	npc.ID = chi.URLParam(r, "npcID")
	if err := api.Store.UpdateNPC(r.Context(), npc); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "npc not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update npc")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (api *API) DeleteNPC(w http.ResponseWriter, r *http.Request) {
	if err := api.Store.DeleteNPC(r.Context(), chi.URLParam(r, "npcID")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "npc not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete npc")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (api *API) CreateSharedItem(w http.ResponseWriter, r *http.Request) {
	masterID := r.URL.Query().Get("master_id")
	if _, ok := api.master(w, r, masterID); !ok {
		return
	}
	var item types.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	if item.ID == "" {
		item.ID = "item-" + uuid.NewString()
	}
	if err := api.Store.CreateSharedItem(r.Context(), masterID, item); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}
	api.Table.Inbox() <- table.BroadcastSharedItems{}
	writeJSON(w, http.StatusCreated, item)
}

func (api *API) GetSharedItems(w http.ResponseWriter, r *http.Request) {
	items, err := api.Store.GetSharedItems(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load items")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (api *API) UpdateSharedItem(w http.ResponseWriter, r *http.Request) {
	var item types.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	item.ID = chi.URLParam(r, "itemID")
	if err := api.Store.UpdateSharedItem(r.Context(), item); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update item")
		return
	}
	api.Table.Inbox() <- table.BroadcastSharedItems{}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (api *API) DeleteSharedItem(w http.ResponseWriter, r *http.Request) {
	if err := api.Store.DeleteSharedItem(r.Context(), chi.URLParam(r, "itemID")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}
	api.Table.Inbox() <- table.BroadcastSharedItems{}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (api *API) CreateSharedAbility(w http.ResponseWriter, r *http.Request) {
	masterID := r.URL.Query().Get("master_id")
	if _, ok := api.master(w, r, masterID); !ok {
		return
	}
	var ability types.Ability
	if err := json.NewDecoder(r.Body).Decode(&ability); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	if ability.ID == "" {
		ability.ID = "ability-" + uuid.NewString()
	}
	if err := api.Store.CreateSharedAbility(r.Context(), masterID, ability); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create ability")
		return
	}
	api.Table.Inbox() <- table.BroadcastSharedAbilities{}
	writeJSON(w, http.StatusCreated, ability)
}

func (api *API) GetSharedAbilities(w http.ResponseWriter, r *http.Request) {
	abilities, err := api.Store.GetSharedAbilities(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load abilities")
		return
	}
	writeJSON(w, http.StatusOK, abilities)
}

func (api *API) UpdateSharedAbility(w http.ResponseWriter, r *http.Request) {
	var ability types.Ability
	if err := json.NewDecoder(r.Body).Decode(&ability); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	ability.ID = chi.URLParam(r, "abilityID")
	if err := api.Store.UpdateSharedAbility(r.Context(), ability); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "ability not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update ability")
		return
	}
	api.Table.Inbox() <- table.BroadcastSharedAbilities{}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (api *API) DeleteSharedAbility(w http.ResponseWriter, r *http.Request) {
	if err := api.Store.DeleteSharedAbility(r.Context(), chi.URLParam(r, "abilityID")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "ability not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete ability")
		return
	}
	api.Table.Inbox() <- table.BroadcastSharedAbilities{}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (api *API) CreateMasterNote(w http.ResponseWriter, r *http.Request) {
	masterID := r.URL.Query().Get("master_id")
	if _, ok := api.master(w, r, masterID); !ok {
		return
	}
	var note types.MasterNote
	if err := json.NewDecoder(r.Body).Decode(&note); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	note.ID = "note-" + uuid.NewString()
	note.MasterID = masterID
	if err := api.Store.CreateMasterNote(r.Context(), note); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create note")
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (api *API) GetMasterNotes(w http.ResponseWriter, r *http.Request) {
	masterID := chi.URLParam(r, "masterID")
	if _, ok := api.master(w, r, masterID); !ok {
		return
	}
	notes, err := api.Store.GetMasterNotes(r.Context(), masterID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load notes")
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (api *API) UpdateMasterNote(w http.ResponseWriter, r *http.Request) {
	var note types.MasterNote
	if err := json.NewDecoder(r.Body).Decode(&note); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	note.ID = chi.URLParam(r, "noteID")
	if err := api.Store.UpdateMasterNote(r.Context(), note); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update note")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (api *API) DeleteMasterNote(w http.ResponseWriter, r *http.Request) {
	if err := api.Store.DeleteMasterNote(r.Context(), chi.URLParam(r, "noteID")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete note")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
